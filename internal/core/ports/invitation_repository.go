package ports

import (
	"context"
	"time"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

// InvitationRepository defines persistence for pending access offers.
type InvitationRepository interface {
	Insert(ctx context.Context, inv *domain.Invitation) error
	FindByID(ctx context.Context, id string) (*domain.Invitation, error)
	// FindPendingByEmail returns domain.ErrInvitationNotFound when no
	// pending invitation exists for the email.
	FindPendingByEmail(ctx context.Context, email string) (*domain.Invitation, error)
	ListByStatus(ctx context.Context, status domain.InvitationStatus) ([]*domain.Invitation, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	MarkAccepted(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
