package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/policy"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

const testJWTSecret = "test-secret"

// stubSync only implements the read path the principal resolver uses.
type stubSync struct {
	users map[string]*domain.User
	err   error
}

func (s *stubSync) Upsert(context.Context, ports.ProfileInput) (*domain.User, error) {
	panic("not used")
}

func (s *stubSync) EnsureUser(context.Context, ports.ProfileInput) (*domain.User, error) {
	panic("not used")
}

func (s *stubSync) DeactivateByExternalID(context.Context, string) error {
	panic("not used")
}

func (s *stubSync) CurrentUser(_ context.Context, externalID string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[externalID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("token signing failed: %v", err)
	}
	return signed
}

// newGatedServer wires the full chain under test: token extraction, principal
// resolution, then a gate in front of a trivial handler.
func newGatedServer(sync ports.SyncService, req policy.Requirement) *echo.Echo {
	e := echo.New()
	cfg := GateConfig{SignInURL: "/sign-in", ForbiddenURL: "/unauthorized"}
	g := e.Group("/v1", Auth(testJWTSecret), ResolvePrincipal(sync, zerolog.Nop()))
	g.GET("/thing", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, Gate(cfg, req))
	return e
}

func activeMember(role domain.Role) *domain.User {
	return &domain.User{ID: "u1", ExternalID: "ext_1", Role: role, IsActive: true}
}

func TestGate_AllowsAuthorized(t *testing.T) {
	sync := &stubSync{users: map[string]*domain.User{"ext_1": activeMember(domain.RoleAdmin)}}
	e := newGatedServer(sync, policy.Named(policy.CanManageUsers))

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_1"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGate_SignedOutJSON(t *testing.T) {
	e := newGatedServer(&stubSync{}, policy.Authenticated())

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGate_SignedOutBrowserRedirectsToSignIn(t *testing.T) {
	e := newGatedServer(&stubSync{}, policy.Authenticated())

	req := httptest.NewRequest(http.MethodGet, "/v1/thing?tab=deals", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad location header: %v", err)
	}
	if loc.Path != "/sign-in" {
		t.Fatalf("redirect path = %s, want /sign-in", loc.Path)
	}
	// The original path must survive the round trip.
	if got := loc.Query().Get("redirect_url"); got != "/v1/thing?tab=deals" {
		t.Fatalf("redirect_url = %q", got)
	}
}

func TestGate_RoleInsufficientBrowserRedirectsToForbidden(t *testing.T) {
	sync := &stubSync{users: map[string]*domain.User{"ext_1": activeMember(domain.RoleViewer)}}
	e := newGatedServer(sync, policy.Named(policy.CanManageUsers))

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_1"))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/unauthorized" {
		t.Fatalf("redirect = %s, want /unauthorized", loc)
	}
}

func TestGate_RoleInsufficientJSON(t *testing.T) {
	sync := &stubSync{users: map[string]*domain.User{"ext_1": activeMember(domain.RoleViewer)}}
	e := newGatedServer(sync, policy.Named(policy.CanManageUsers))

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_1"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// A valid session without a local record is sent to sign-in, not forbidden:
// the client completes the sync flow from there.
func TestGate_MidSyncTreatedAsSignIn(t *testing.T) {
	e := newGatedServer(&stubSync{}, policy.Authenticated())

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_unknown"))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if loc.Path != "/sign-in" {
		t.Fatalf("redirect path = %s, want /sign-in", loc.Path)
	}
}

// Session-gated routes stay reachable mid-sync; that is where the record
// gets created.
func TestGate_SessionRequirementAdmitsMidSync(t *testing.T) {
	e := newGatedServer(&stubSync{}, policy.Session())

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_unknown"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGate_InactiveRecordForbidden(t *testing.T) {
	gone := activeMember(domain.RoleAdmin)
	gone.IsActive = false
	sync := &stubSync{users: map[string]*domain.User{"ext_1": gone}}
	e := newGatedServer(sync, policy.Authenticated())

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_1"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// Store failures during principal resolution must deny, not guess.
func TestGate_ResolutionFailureFailsClosed(t *testing.T) {
	sync := &stubSync{err: context.DeadlineExceeded}
	e := newGatedServer(sync, policy.Authenticated())

	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ext_1"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_BadTokensCarryNoSubject(t *testing.T) {
	for name, header := range map[string]string{
		"garbage":      "Bearer not-a-token",
		"wrong scheme": "Basic abc",
		"wrong key": "Bearer " + func() string {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ext_1"})
			signed, _ := token.SignedString([]byte("other-secret"))
			return signed
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			e := newGatedServer(&stubSync{}, policy.Authenticated())
			req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
