package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/policy"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

const principalKey = "principal"

// ResolvePrincipal loads the local user record for the authenticated subject
// and stores the resulting principal in the request context. A subject with
// no local record yet (webhook still in flight) is an authenticated principal
// without a user. Store failures resolve the same way: authorization fails
// closed rather than guessing.
func ResolvePrincipal(sync ports.SyncService, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			externalID := ExternalID(c)
			if externalID == "" {
				c.Set(principalKey, policy.Principal{})
				return next(c)
			}

			p := policy.Principal{Authenticated: true}
			user, err := sync.CurrentUser(c.Request().Context(), externalID)
			switch {
			case err == nil:
				p.User = user
			case errors.Is(err, domain.ErrUserNotFound):
				// mid-sync, leave the principal without a record
			default:
				log.Warn().Err(err).Str("external_id", externalID).Msg("principal lookup failed")
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// Principal returns the resolved principal for the request. Requests that
// never passed through ResolvePrincipal resolve as unauthenticated.
func Principal(c echo.Context) policy.Principal {
	if p, ok := c.Get(principalKey).(policy.Principal); ok {
		return p
	}
	return policy.Principal{}
}
