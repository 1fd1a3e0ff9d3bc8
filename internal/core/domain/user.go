package domain

import (
	"errors"
	"time"
)

// Role is a named privilege tier. Exactly one role is assigned per user.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
	RoleViewer  Role = "viewer"
)

// DefaultRole is assigned to users created by a sync event that carries no
// explicit role. Kept as a named constant so the default is auditable in one
// place.
const DefaultRole = RoleSales

var knownRoles = map[Role]struct{}{
	RoleOwner:   {},
	RoleAdmin:   {},
	RoleManager: {},
	RoleSales:   {},
	RoleViewer:  {},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrForbidden = errors.New("access forbidden")
var ErrNotAuthenticated = errors.New("not authenticated")
var ErrInvalidRole = errors.New("invalid role")
var ErrInvalidProfile = errors.New("invalid profile payload")
var ErrOwnerRoleRestricted = errors.New("only owners can assign owner role")
var ErrOwnerImmutable = errors.New("owner cannot be deactivated")

// User models one authenticated principal, keyed by the stable identifier
// issued by the external identity provider. Users are never hard-deleted;
// removal is modeled as IsActive = false.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
