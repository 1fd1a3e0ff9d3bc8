package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apimw "github.com/acmecrm/crm-identity/internal/api/middleware"
	"github.com/acmecrm/crm-identity/internal/api/view"
	"github.com/acmecrm/crm-identity/internal/core/policy"
)

// OverviewHandler composes the role-dependent workspace overview. Each
// section is gated individually, so two callers with different roles get
// different documents from the same endpoint.
type OverviewHandler struct{}

// NewOverviewHandler creates an OverviewHandler.
func NewOverviewHandler() *OverviewHandler {
	return &OverviewHandler{}
}

type moduleEntry struct {
	Actions []string `json:"actions"`
}

type adminEntry struct {
	TeamURL        string `json:"team_url"`
	InvitationsURL string `json:"invitations_url"`
}

// Overview handles GET /v1/overview.
//
// @Summary      Role-dependent workspace overview
// @Tags         overview
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  errorResponse
// @Router       /v1/overview [get]
func (h *OverviewHandler) Overview(c echo.Context) error {
	p := apimw.Principal(c)

	sections := make([]view.Section, 0, len(policy.Modules)+1)
	for _, m := range policy.Modules {
		m := m
		sections = append(sections, view.Section{
			Name:    string(m),
			Require: policy.OnModule(m, policy.ActionView),
			Content: func() any {
				actions := policy.PermissionsFor(p.User.Role, m)
				out := make([]string, 0, len(actions))
				for _, a := range actions {
					out = append(out, string(a))
				}
				return moduleEntry{Actions: out}
			},
			ShowPending: true,
		})
	}

	sections = append(sections, view.Section{
		Name:    "administration",
		Require: policy.Named(policy.CanManageUsers),
		Content: func() any {
			return adminEntry{TeamURL: "/v1/team", InvitationsURL: "/v1/invitations"}
		},
		Fallback: func() any {
			return messageResponse{Message: "contact an administrator to manage the team"}
		},
	})

	return c.JSON(http.StatusOK, view.Render(p, sections...))
}
