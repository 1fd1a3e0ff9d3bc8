package ports

import (
	"context"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

// Sync triggers, used for logging and metrics labels.
const (
	TriggerWebhook = "webhook"
	TriggerClient  = "client"
)

// ProfileInput is the provider-observed profile flowing into a sync. Role is
// optional and only honored on first creation or when an administrative
// caller supplies it explicitly; profile refreshes never carry one.
type ProfileInput struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
	Role       domain.Role
	Trigger    string
}

// SyncService reconciles external identity events and client-observed
// sessions into exactly one User record per external id.
type SyncService interface {
	// Upsert is the idempotent insert-or-patch entry used by the webhook
	// path. Calling it N times with the same input yields the same state
	// as calling it once.
	Upsert(ctx context.Context, in ProfileInput) (*domain.User, error)
	// EnsureUser is the client-observed entry. It tracks a per-identity
	// attempt flag so a rendering loop cannot hammer the store, clearing
	// the flag on failure so a fresh request cycle may retry.
	EnsureUser(ctx context.Context, in ProfileInput) (*domain.User, error)
	// DeactivateByExternalID handles provider deletion events. A missing
	// record is a logged no-op success.
	DeactivateByExternalID(ctx context.Context, externalID string) error
	// CurrentUser is the read path every authorization caller resolves
	// the principal through.
	CurrentUser(ctx context.Context, externalID string) (*domain.User, error)
}

// AttemptTracker records that a client-observed sync has been attempted for
// an external id, bounding retry frequency. Implementations expire marks so
// a stuck flag cannot block syncing forever.
type AttemptTracker interface {
	Attempted(ctx context.Context, externalID string) (bool, error)
	Mark(ctx context.Context, externalID string) error
	Clear(ctx context.Context, externalID string) error
}
