package ports

import (
	"context"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

// TeamService exposes the administrative mutations on User records. Every
// operation authorizes the acting principal before touching state.
type TeamService interface {
	// ListMembers returns all active users for callers with team-wide
	// visibility, and only the caller's own record otherwise.
	ListMembers(ctx context.Context, actorExternalID string) ([]*domain.User, error)
	// ChangeRole requires the manage-users permission; granting Owner
	// additionally requires the actor to be an Owner.
	ChangeRole(ctx context.Context, actorExternalID, targetID string, role domain.Role) error
	// Deactivate requires the manage-users permission. Owners cannot be
	// deactivated, and nothing is ever hard-deleted.
	Deactivate(ctx context.Context, actorExternalID, targetID string) error
}

// InviteInput carries an invitation request.
type InviteInput struct {
	Email string
	Role  domain.Role
}

// InvitationService manages pending access offers.
type InvitationService interface {
	Invite(ctx context.Context, actorExternalID string, in InviteInput) (*domain.Invitation, error)
	Resend(ctx context.Context, actorExternalID, invitationID string) (*domain.Invitation, error)
	Cancel(ctx context.Context, actorExternalID, invitationID string) error
	ListPending(ctx context.Context, actorExternalID string) ([]*domain.Invitation, error)
}

// InvitationMail is one outbound invitation delivery job.
type InvitationMail struct {
	Email       string
	Role        domain.Role
	InviterName string
	Token       string
	ExpiresAt   string
}

// Mailer delivers invitation email. Delivery itself is an external
// collaborator; implementations may queue, send, or merely log.
type Mailer interface {
	SendInvitation(ctx context.Context, mail InvitationMail) error
}
