package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

func newMeServer(sync *stubSyncService) *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	h := NewMeHandler(sync)
	// The real router injects the subject via the auth middleware; tests
	// set it directly.
	withSubject := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("external_id", "ext_1")
			return next(c)
		}
	}
	e.POST("/v1/me/sync", h.Sync, withSubject)
	e.GET("/v1/me", h.Me, withSubject)
	return e
}

func TestMeHandler_Sync(t *testing.T) {
	sync := &stubSyncService{}
	e := newMeServer(sync)

	body := `{"email":"ada@example.com","first_name":"Ada","last_name":"Lovelace"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/me/sync", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sync.upserts) != 1 {
		t.Fatalf("ensure called %d times", len(sync.upserts))
	}
	in := sync.upserts[0]
	if in.ExternalID != "ext_1" {
		t.Fatalf("subject not taken from the session: %+v", in)
	}
	if in.Role != "" {
		t.Fatalf("client sync must never carry a role, got %q", in.Role)
	}
}

func TestMeHandler_Sync_Validation(t *testing.T) {
	e := newMeServer(&stubSyncService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/me/sync", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestMeHandler_Me_CapabilitiesFollowRole(t *testing.T) {
	sync := &stubSyncService{currentUsers: map[string]*domain.User{
		"ext_1": {ID: "u1", ExternalID: "ext_1", Email: "ada@example.com", Role: domain.RoleManager, IsActive: true},
	}}
	e := newMeServer(sync)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
		Permissions  map[string][]string `json:"permissions"`
		Capabilities map[string]bool     `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if resp.User.Role != "manager" {
		t.Fatalf("role = %s", resp.User.Role)
	}
	if resp.Capabilities["canViewAllData"] != true || resp.Capabilities["canManageUsers"] != false {
		t.Fatalf("manager capabilities: %+v", resp.Capabilities)
	}
	if len(resp.Permissions["team"]) != 1 || resp.Permissions["team"][0] != "view" {
		t.Fatalf("manager team permissions: %v", resp.Permissions["team"])
	}
	// Absent grants are present-but-empty so clients can enumerate.
	if actions, ok := resp.Permissions["billing"]; !ok || len(actions) != 0 {
		t.Fatalf("manager billing permissions: %v, present=%v", actions, ok)
	}
}
