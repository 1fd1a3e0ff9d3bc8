package domain

import (
	"errors"
	"time"
)

// InvitationStatus is the lifecycle state of a pending access offer.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is the fixed validity window computed at creation and
// recomputed on resend.
const InvitationTTL = 7 * 24 * time.Hour

var ErrInvitationNotFound = errors.New("invitation not found")
var ErrInvitationPending = errors.New("a pending invitation already exists for this email")
var ErrInviteeExists = errors.New("a user with this email already exists")

// Invitation represents an offer of access not yet backed by a User record.
// It is related to, but not atomically coupled with, the User the invited
// principal will eventually become.
type Invitation struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Token     string           `json:"-"`
	InvitedBy string           `json:"invited_by"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// IsExpired reports whether the invitation's validity window has passed.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EffectiveStatus folds expiry into the stored status without mutating it:
// a stored "pending" past its window reads as "expired".
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}
