package policy

import (
	"testing"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

func activeUser(role domain.Role) *domain.User {
	return &domain.User{ID: "u1", ExternalID: "ext_1", Role: role, IsActive: true}
}

func TestDecide_FailClosedOrder(t *testing.T) {
	inactive := activeUser(domain.RoleOwner)
	inactive.IsActive = false

	cases := []struct {
		name   string
		p      Principal
		reason DenyReason
	}{
		{"unauthenticated", Principal{}, DenyNotAuthenticated},
		{"unauthenticated with record", Principal{User: activeUser(domain.RoleOwner)}, DenyNotAuthenticated},
		{"no local record", Principal{Authenticated: true}, DenyNoLocalRecord},
		{"inactive record", Principal{Authenticated: true, User: inactive}, DenyRecordInactive},
	}

	// Every requirement kind must deny for every incomplete principal.
	reqs := map[string]Requirement{
		"authenticated": Authenticated(),
		"any_role":      AnyRole(domain.RoleOwner, domain.RoleAdmin),
		"named":         Named(CanManageUsers),
		"module_action": OnModule(ModuleDashboard, ActionView),
	}

	for _, tc := range cases {
		for reqName, req := range reqs {
			t.Run(tc.name+"/"+reqName, func(t *testing.T) {
				d := Decide(tc.p, req)
				if d.Allowed {
					t.Fatal("expected deny")
				}
				if d.Reason != tc.reason {
					t.Fatalf("reason = %s, want %s", d.Reason, tc.reason)
				}
			})
		}
	}
}

func TestDecide_Session(t *testing.T) {
	if d := Decide(Principal{}, Session()); d.Allowed || d.Reason != DenyNotAuthenticated {
		t.Fatalf("signed-out session decision = %+v", d)
	}
	// A session is enough even before the local record exists.
	if d := Decide(Principal{Authenticated: true}, Session()); !d.Allowed {
		t.Fatalf("mid-sync session denied: %s", d.Reason)
	}
	if d := Decide(Principal{Authenticated: true, User: activeUser(domain.RoleViewer)}, Session()); !d.Allowed {
		t.Fatalf("resolved session denied: %s", d.Reason)
	}
}

func TestDecide_RoleTests(t *testing.T) {
	viewer := Principal{Authenticated: true, User: activeUser(domain.RoleViewer)}
	admin := Principal{Authenticated: true, User: activeUser(domain.RoleAdmin)}

	if d := Decide(viewer, Authenticated()); !d.Allowed {
		t.Fatalf("active viewer failed authenticated requirement: %s", d.Reason)
	}

	if d := Decide(viewer, AnyRole(domain.RoleOwner, domain.RoleAdmin)); d.Allowed {
		t.Fatal("viewer passed owner/admin role set")
	} else if d.Reason != DenyRoleInsufficient {
		t.Fatalf("reason = %s, want %s", d.Reason, DenyRoleInsufficient)
	}

	if d := Decide(admin, Named(CanManageUsers)); !d.Allowed {
		t.Fatalf("admin denied manage-users: %s", d.Reason)
	}
	if d := Decide(viewer, Named(CanManageUsers)); d.Allowed {
		t.Fatal("viewer granted manage-users")
	}

	if d := Decide(viewer, OnModule(ModuleContacts, ActionView)); !d.Allowed {
		t.Fatalf("viewer denied contacts view: %s", d.Reason)
	}
	if d := Decide(viewer, OnModule(ModuleContacts, ActionEdit)); d.Allowed {
		t.Fatal("viewer granted contacts edit")
	}
}

func TestDecide_EmptyRoleSetDeniesEveryone(t *testing.T) {
	owner := Principal{Authenticated: true, User: activeUser(domain.RoleOwner)}
	if d := Decide(owner, AnyRole()); d.Allowed {
		t.Fatal("empty role set must deny even owner")
	}
}
