package handler

// Provider event types the endpoint acts on. Anything else is acknowledged
// and ignored so the provider does not retry forever.
const (
	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
	eventUserDeleted = "user.deleted"
)

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type identityEventData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
}

type identityEvent struct {
	Type string            `json:"type"`
	Data identityEventData `json:"data"`
}

// primaryEmail resolves the address the provider marks as primary, falling
// back to the first listed address when the marker is absent.
func (d identityEventData) primaryEmail() (string, bool) {
	for _, ea := range d.EmailAddresses {
		if ea.ID == d.PrimaryEmailAddressID && ea.EmailAddress != "" {
			return ea.EmailAddress, true
		}
	}
	if len(d.EmailAddresses) > 0 && d.EmailAddresses[0].EmailAddress != "" {
		return d.EmailAddresses[0].EmailAddress, true
	}
	return "", false
}
