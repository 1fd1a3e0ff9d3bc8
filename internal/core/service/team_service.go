package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/policy"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// TeamService implements the administrative mutations on User records.
// Authorization runs through the same decision engine the HTTP gates use, so
// a mutation can never be reachable with weaker checks than its route.
type TeamService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

func NewTeamService(users ports.UserRepository, log zerolog.Logger) *TeamService {
	return &TeamService{users: users, log: log}
}

// resolveActor loads the acting principal. An unresolvable actor fails
// closed as forbidden rather than not-found: callers of the admin surface
// learn nothing from the distinction.
func (s *TeamService) resolveActor(ctx context.Context, externalID string) (*domain.User, error) {
	actor, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
	}
	return actor, nil
}

// requireManageUsers denies unless the actor holds the manage-users
// permission.
func requireManageUsers(actor *domain.User) error {
	d := policy.Decide(policy.Principal{Authenticated: true, User: actor}, policy.Named(policy.CanManageUsers))
	if !d.Allowed {
		return domain.ErrForbidden
	}
	return nil
}

// ListMembers returns all active users for callers with team-wide
// visibility, otherwise only the caller's own record.
func (s *TeamService) ListMembers(ctx context.Context, actorExternalID string) ([]*domain.User, error) {
	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return nil, err
	}

	d := policy.Decide(policy.Principal{Authenticated: true, User: actor}, policy.Named(policy.CanViewAllData))
	if !d.Allowed {
		return []*domain.User{actor}, nil
	}

	members, err := s.users.List(ctx, ports.ListUsersFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// ChangeRole sets the target user's role. The actor must hold manage-users;
// granting Owner additionally requires the actor to be an Owner. This is the
// only operation that may alter a role.
func (s *TeamService) ChangeRole(ctx context.Context, actorExternalID, targetID string, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}

	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return err
	}
	if err := requireManageUsers(actor); err != nil {
		return err
	}
	if role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return domain.ErrOwnerRoleRestricted
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.users.UpdateRole(ctx, target.ID, role); err != nil {
		return fmt.Errorf("change role: %w", err)
	}

	s.log.Info().
		Str("actor", actor.ExternalID).
		Str("target", target.ExternalID).
		Str("old_role", string(target.Role)).
		Str("new_role", string(role)).
		Msg("role changed")

	return nil
}

// Deactivate marks the target user inactive. Owners cannot be deactivated
// and nothing is ever hard-deleted.
func (s *TeamService) Deactivate(ctx context.Context, actorExternalID, targetID string) error {
	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return err
	}
	if err := requireManageUsers(actor); err != nil {
		return err
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleOwner {
		return domain.ErrOwnerImmutable
	}

	if err := s.users.SetActive(ctx, target.ID, false); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}

	s.log.Info().
		Str("actor", actor.ExternalID).
		Str("target", target.ExternalID).
		Msg("user deactivated")

	return nil
}
