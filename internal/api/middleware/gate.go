package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acmecrm/crm-identity/internal/api/metrics"
	"github.com/acmecrm/crm-identity/internal/core/policy"
)

// GateConfig carries the redirect targets used for browser traffic.
type GateConfig struct {
	SignInURL    string
	ForbiddenURL string
}

// Gate enforces an access requirement on a route group. Denials split two
// ways: a principal that is signed out or has no local record yet goes to
// sign-in, a recognized principal that lacks the role goes to forbidden.
// Browser requests (Accept: text/html) get redirects, everything else gets
// JSON statuses.
func Gate(cfg GateConfig, req policy.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := policy.Decide(Principal(c), req)
			if d.Allowed {
				return next(c)
			}

			metrics.AccessDeniedTotal.WithLabelValues(string(d.Reason)).Inc()

			switch d.Reason {
			case policy.DenyNotAuthenticated, policy.DenyNoLocalRecord:
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, signInTarget(cfg.SignInURL, c.Request().RequestURI))
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			default:
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, cfg.ForbiddenURL)
				}
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}
		}
	}
}

// signInTarget preserves the originally requested path so the client can
// come back after signing in.
func signInTarget(signInURL, requestURI string) string {
	return signInURL + "?redirect_url=" + url.QueryEscape(requestURI)
}

func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), echo.MIMETextHTML)
}
