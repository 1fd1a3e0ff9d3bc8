package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acmecrm/crm-identity/internal/api/metrics"
	apimw "github.com/acmecrm/crm-identity/internal/api/middleware"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// MeHandler serves the session-owner endpoints.
type MeHandler struct {
	sync ports.SyncService
}

// NewMeHandler creates a MeHandler.
func NewMeHandler(sync ports.SyncService) *MeHandler {
	return &MeHandler{sync: sync}
}

// Sync handles POST /v1/me/sync: the client-observed session reports the
// profile it sees, and the store converges on one record for the subject.
//
// @Summary      Reconcile the caller's identity into the local store
// @Tags         me
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      syncRequest  true  "Observed profile"
// @Success      200   {object}  userResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/me/sync [post]
func (h *MeHandler) Sync(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.sync.EnsureUser(c.Request().Context(), ports.ProfileInput{
		ExternalID: apimw.ExternalID(c),
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		AvatarURL:  req.AvatarURL,
		Trigger:    ports.TriggerClient,
	})
	if err != nil {
		metrics.SyncTotal.WithLabelValues(ports.TriggerClient, "error").Inc()
		return err
	}

	metrics.SyncTotal.WithLabelValues(ports.TriggerClient, "ok").Inc()
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Me handles GET /v1/me: returns the caller's record together with the
// full permission set derived from its role.
//
// @Summary      Current user and permissions
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/me [get]
func (h *MeHandler) Me(c echo.Context) error {
	user, err := h.sync.CurrentUser(c.Request().Context(), apimw.ExternalID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeResponse(user))
}
