package handler

import (
	"time"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/policy"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

type syncRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner admin manager sales viewer"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"  validate:"required,oneof=owner admin manager sales viewer"`
}

// --- Response types ---

type userResponse struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// meResponse pairs the user record with everything its role may do, so
// clients never hardcode role names.
type meResponse struct {
	User         userResponse        `json:"user"`
	Permissions  map[string][]string `json:"permissions"`
	Capabilities map[string]bool     `json:"capabilities"`
}

type teamResponse struct {
	Members []userResponse `json:"members"`
	Count   int            `json:"count"`
}

type invitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invited_by"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type invitationListResponse struct {
	Invitations []invitationResponse `json:"invitations"`
	Count       int                  `json:"count"`
}

// --- Mappers ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		AvatarURL:  u.AvatarURL,
		Role:       string(u.Role),
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func toMeResponse(u *domain.User) meResponse {
	perms := make(map[string][]string)
	for module, actions := range policy.AllPermissions(u.Role) {
		list := make([]string, 0, len(actions))
		for _, a := range actions {
			list = append(list, string(a))
		}
		perms[string(module)] = list
	}

	caps := make(map[string]bool)
	for _, p := range policy.LegacyPermissions {
		caps[string(p)] = policy.Granted(u.Role, p)
	}

	return meResponse{
		User:         toUserResponse(u),
		Permissions:  perms,
		Capabilities: caps,
	}
}

func toInvitationResponse(inv *domain.Invitation, now time.Time) invitationResponse {
	return invitationResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		InvitedBy: inv.InvitedBy,
		Status:    string(inv.EffectiveStatus(now)),
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	}
}
