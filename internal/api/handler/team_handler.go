package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apimw "github.com/acmecrm/crm-identity/internal/api/middleware"
	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// TeamHandler serves team membership and administration.
type TeamHandler struct {
	team ports.TeamService
}

// NewTeamHandler creates a TeamHandler.
func NewTeamHandler(team ports.TeamService) *TeamHandler {
	return &TeamHandler{team: team}
}

// List handles GET /v1/team. Visibility scoping happens in the service:
// callers without team-wide visibility only ever see themselves.
//
// @Summary      List team members
// @Tags         team
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  teamResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/team [get]
func (h *TeamHandler) List(c echo.Context) error {
	members, err := h.team.ListMembers(c.Request().Context(), apimw.ExternalID(c))
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toUserResponse(m))
	}
	return c.JSON(http.StatusOK, teamResponse{Members: out, Count: len(out)})
}

// ChangeRole handles PATCH /v1/team/:id/role.
//
// @Summary      Change a member's role
// @Tags         team
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  messageResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/team/{id}/role [patch]
func (h *TeamHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	err := h.team.ChangeRole(c.Request().Context(), apimw.ExternalID(c), c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "role updated"})
}

// Deactivate handles DELETE /v1/team/:id. Members are deactivated, never
// removed from the store.
//
// @Summary      Deactivate a member
// @Tags         team
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "User id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/team/{id} [delete]
func (h *TeamHandler) Deactivate(c echo.Context) error {
	err := h.team.Deactivate(c.Request().Context(), apimw.ExternalID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "member deactivated"})
}
