package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/api/metrics"
	"github.com/acmecrm/crm-identity/internal/core/ports"
	"github.com/acmecrm/crm-identity/pkg/webhooksig"
)

// DeliveryDedup is the interface the handler uses to suppress provider
// redeliveries.
type DeliveryDedup interface {
	IsDuplicate(ctx context.Context, deliveryID string) (bool, error)
	Mark(ctx context.Context, deliveryID string) error
}

// WebhookHandler ingests identity provider events.
type WebhookHandler struct {
	verifier *webhooksig.Verifier
	dedup    DeliveryDedup
	sync     ports.SyncService
	log      zerolog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(verifier *webhooksig.Verifier, dedup DeliveryDedup, sync ports.SyncService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, dedup: dedup, sync: sync, log: log}
}

// Receive handles POST /webhooks/identity: verifies the signed delivery and
// applies the event synchronously. Processing failures return 5xx so the
// provider redelivers; the dedup mark is only written after success for the
// same reason.
//
// @Summary      Ingest an identity provider event
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /webhooks/identity [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if err := h.verifier.VerifyRequest(c.Request().Header, body); err != nil {
		return h.rejectSignature(err)
	}

	var evt identityEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		metrics.IdentityEventErrorsTotal.WithLabelValues("invalid_payload").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if evt.Type == "" {
		metrics.IdentityEventErrorsTotal.WithLabelValues("invalid_payload").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "event type is required")
	}

	ctx := c.Request().Context()
	deliveryID := c.Request().Header.Get(webhooksig.HeaderID)

	dup, err := h.dedup.IsDuplicate(ctx, deliveryID)
	if err != nil {
		// Dedup is best effort, the upsert is idempotent anyway.
		h.log.Warn().Err(err).Str("delivery_id", deliveryID).Msg("dedup check failed")
	}
	if dup {
		metrics.WebhookDedupTotal.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, messageResponse{Message: "duplicate delivery"})
	}
	metrics.WebhookDedupTotal.WithLabelValues("miss").Inc()

	eventType, err := h.apply(ctx, evt)
	if err != nil {
		metrics.IdentityEventErrorsTotal.WithLabelValues("sync_failed").Inc()
		metrics.SyncTotal.WithLabelValues(ports.TriggerWebhook, "error").Inc()
		return err
	}
	metrics.SyncTotal.WithLabelValues(ports.TriggerWebhook, "ok").Inc()

	if err := h.dedup.Mark(ctx, deliveryID); err != nil {
		h.log.Warn().Err(err).Str("delivery_id", deliveryID).Msg("dedup mark failed")
	}

	metrics.IdentityEventsTotal.WithLabelValues(eventType).Inc()
	h.log.Info().
		Str("type", evt.Type).
		Str("delivery_id", deliveryID).
		Str("external_id", evt.Data.ID).
		Msg("identity event processed")

	return c.JSON(http.StatusOK, messageResponse{Message: "event processed"})
}

// apply routes the event to the sync service and returns the metric label
// for the handled type.
func (h *WebhookHandler) apply(ctx context.Context, evt identityEvent) (string, error) {
	switch evt.Type {
	case eventUserCreated, eventUserUpdated:
		email, ok := evt.Data.primaryEmail()
		if !ok {
			metrics.IdentityEventErrorsTotal.WithLabelValues("no_primary_email").Inc()
			return "", echo.NewHTTPError(http.StatusUnprocessableEntity, "event has no usable email address")
		}
		_, err := h.sync.Upsert(ctx, ports.ProfileInput{
			ExternalID: evt.Data.ID,
			Email:      email,
			FirstName:  evt.Data.FirstName,
			LastName:   evt.Data.LastName,
			AvatarURL:  evt.Data.ImageURL,
			Trigger:    ports.TriggerWebhook,
		})
		return evt.Type, err

	case eventUserDeleted:
		return evt.Type, h.sync.DeactivateByExternalID(ctx, evt.Data.ID)

	default:
		h.log.Debug().Str("type", evt.Type).Msg("ignoring unhandled event type")
		return "ignored", nil
	}
}

func (h *WebhookHandler) rejectSignature(err error) error {
	switch {
	case errors.Is(err, webhooksig.ErrMissingHeaders):
		metrics.IdentityEventErrorsTotal.WithLabelValues("missing_headers").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "missing signature headers")
	default:
		metrics.IdentityEventErrorsTotal.WithLabelValues("bad_signature").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "signature verification failed")
	}
}
