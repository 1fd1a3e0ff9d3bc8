package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/domain"
)

func seedUser(repo *stubUserRepo, ext string, role domain.Role, active bool) *domain.User {
	return repo.add(&domain.User{
		ExternalID: ext,
		Email:      ext + "@example.com",
		Role:       role,
		IsActive:   active,
	})
}

func newTeamService(repo *stubUserRepo) *TeamService {
	return NewTeamService(repo, zerolog.Nop())
}

func TestTeamService_ListMembers_Scoping(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_owner", domain.RoleOwner, true)
	seedUser(repo, "ext_sales", domain.RoleSales, true)
	seedUser(repo, "ext_gone", domain.RoleViewer, false)
	svc := newTeamService(repo)

	// Team-wide visibility: every active member, never the deactivated one.
	members, err := svc.ListMembers(context.Background(), "ext_owner")
	if err != nil {
		t.Fatalf("owner list failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("owner sees %d members, want 2", len(members))
	}
	for _, m := range members {
		if !m.IsActive {
			t.Fatalf("deactivated member leaked into listing: %s", m.ExternalID)
		}
	}

	// Without team-wide visibility the caller only sees itself.
	members, err = svc.ListMembers(context.Background(), "ext_sales")
	if err != nil {
		t.Fatalf("sales list failed: %v", err)
	}
	if len(members) != 1 || members[0].ExternalID != "ext_sales" {
		t.Fatalf("sales scoping broken: %+v", members)
	}
}

func TestTeamService_ListMembers_UnknownActorForbidden(t *testing.T) {
	svc := newTeamService(newStubUserRepo())
	if _, err := svc.ListMembers(context.Background(), "ext_ghost"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestTeamService_ChangeRole(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_admin", domain.RoleAdmin, true)
	target := seedUser(repo, "ext_sales", domain.RoleSales, true)
	svc := newTeamService(repo)

	if err := svc.ChangeRole(context.Background(), "ext_admin", target.ID, domain.RoleManager); err != nil {
		t.Fatalf("change role failed: %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), target.ID)
	if stored.Role != domain.RoleManager {
		t.Fatalf("role = %s, want manager", stored.Role)
	}
}

func TestTeamService_ChangeRole_OwnerGrantRestriction(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_admin", domain.RoleAdmin, true)
	seedUser(repo, "ext_owner", domain.RoleOwner, true)
	target := seedUser(repo, "ext_sales", domain.RoleSales, true)
	svc := newTeamService(repo)

	// Admins hold manage-users but may not mint owners.
	err := svc.ChangeRole(context.Background(), "ext_admin", target.ID, domain.RoleOwner)
	if !errors.Is(err, domain.ErrOwnerRoleRestricted) {
		t.Fatalf("want ErrOwnerRoleRestricted, got %v", err)
	}

	// Owners may.
	if err := svc.ChangeRole(context.Background(), "ext_owner", target.ID, domain.RoleOwner); err != nil {
		t.Fatalf("owner granting owner failed: %v", err)
	}
}

func TestTeamService_ChangeRole_Denials(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_manager", domain.RoleManager, true)
	seedUser(repo, "ext_admin", domain.RoleAdmin, true)
	target := seedUser(repo, "ext_sales", domain.RoleSales, true)
	svc := newTeamService(repo)
	ctx := context.Background()

	// Managers see the roster but hold no manage-users grant.
	if err := svc.ChangeRole(ctx, "ext_manager", target.ID, domain.RoleViewer); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager change role: want ErrForbidden, got %v", err)
	}
	if err := svc.ChangeRole(ctx, "ext_admin", target.ID, domain.Role("root")); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("invalid role: got %v", err)
	}
	if err := svc.ChangeRole(ctx, "ext_admin", "id_missing", domain.RoleViewer); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("missing target: got %v", err)
	}
}

func TestTeamService_Deactivate(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_admin", domain.RoleAdmin, true)
	target := seedUser(repo, "ext_sales", domain.RoleSales, true)
	svc := newTeamService(repo)

	if err := svc.Deactivate(context.Background(), "ext_admin", target.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), target.ID)
	if stored.IsActive {
		t.Fatal("target still active")
	}
}

func TestTeamService_Deactivate_OwnerImmutable(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_admin", domain.RoleAdmin, true)
	owner := seedUser(repo, "ext_owner", domain.RoleOwner, true)
	svc := newTeamService(repo)

	err := svc.Deactivate(context.Background(), "ext_admin", owner.ID)
	if !errors.Is(err, domain.ErrOwnerImmutable) {
		t.Fatalf("want ErrOwnerImmutable, got %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), owner.ID)
	if !stored.IsActive {
		t.Fatal("owner was deactivated")
	}
}

func TestTeamService_InactiveActorForbidden(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(repo, "ext_admin", domain.RoleAdmin, false)
	target := seedUser(repo, "ext_sales", domain.RoleSales, true)
	svc := newTeamService(repo)

	if err := svc.ChangeRole(context.Background(), "ext_admin", target.ID, domain.RoleViewer); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("inactive actor: want ErrForbidden, got %v", err)
	}
}
