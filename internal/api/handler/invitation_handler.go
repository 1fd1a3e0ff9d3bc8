package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apimw "github.com/acmecrm/crm-identity/internal/api/middleware"
	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// InvitationHandler serves the pending-invitation surface.
type InvitationHandler struct {
	invitations ports.InvitationService
}

// NewInvitationHandler creates an InvitationHandler.
func NewInvitationHandler(invitations ports.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// List handles GET /v1/invitations: pending invitations, newest first.
//
// @Summary      List pending invitations
// @Tags         invitations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  invitationListResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/invitations [get]
func (h *InvitationHandler) List(c echo.Context) error {
	invs, err := h.invitations.ListPending(c.Request().Context(), apimw.ExternalID(c))
	if err != nil {
		return err
	}

	now := time.Now()
	out := make([]invitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitationResponse(inv, now))
	}
	return c.JSON(http.StatusOK, invitationListResponse{Invitations: out, Count: len(out)})
}

// Create handles POST /v1/invitations.
//
// @Summary      Invite a new member
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      inviteRequest  true  "Invitee"
// @Success      201   {object}  invitationResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/invitations [post]
func (h *InvitationHandler) Create(c echo.Context) error {
	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	inv, err := h.invitations.Invite(c.Request().Context(), apimw.ExternalID(c), ports.InviteInput{
		Email: req.Email,
		Role:  domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toInvitationResponse(inv, time.Now()))
}

// Resend handles POST /v1/invitations/:id/resend: extends the expiry window
// and queues a fresh mail for a still-pending invitation.
//
// @Summary      Resend a pending invitation
// @Tags         invitations
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Invitation id"
// @Success      200  {object}  invitationResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/invitations/{id}/resend [post]
func (h *InvitationHandler) Resend(c echo.Context) error {
	inv, err := h.invitations.Resend(c.Request().Context(), apimw.ExternalID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvitationResponse(inv, time.Now()))
}

// Cancel handles DELETE /v1/invitations/:id.
//
// @Summary      Cancel a pending invitation
// @Tags         invitations
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Invitation id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/invitations/{id} [delete]
func (h *InvitationHandler) Cancel(c echo.Context) error {
	err := h.invitations.Cancel(c.Request().Context(), apimw.ExternalID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "invitation cancelled"})
}
