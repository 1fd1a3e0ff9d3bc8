package ports

import (
	"context"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

// UpsertUserInput carries the profile fields of an idempotent upsert keyed
// by external id. Role is applied only when non-empty; a profile-only
// refresh never touches an existing user's role.
type UpsertUserInput struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
	Role       domain.Role
}

// ListUsersFilter narrows List results.
type ListUsersFilter struct {
	Role       domain.Role // empty: all roles
	ActiveOnly bool
	Search     string // case-insensitive match on name or email
	Limit      int64  // <= 0: repository default
}

// UserRepository defines persistence for User records. Implementations must
// guarantee uniqueness on external id and email, and perform Upsert as a
// single atomic insert-or-patch.
type UserRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Upsert inserts a new record or patches the profile fields of an
	// existing one, returning the post-write state.
	Upsert(ctx context.Context, in UpsertUserInput) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	SetActive(ctx context.Context, id string, active bool) error
	// DeactivateByExternalID reports found=false (not an error) when no
	// record carries the external id.
	DeactivateByExternalID(ctx context.Context, externalID string) (found bool, err error)
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, error)
}
