package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// MailEnqueuer is the interface the service uses to hand invitation email to
// the outbound dispatcher without blocking the request path.
type MailEnqueuer interface {
	Enqueue(mail ports.InvitationMail)
}

// InvitationService manages pending access offers. An invitation never
// upgrades an existing active user, and acceptance is not atomically linked
// to the invited principal's first sync.
type InvitationService struct {
	users   ports.UserRepository
	invites ports.InvitationRepository
	mail    MailEnqueuer
	log     zerolog.Logger
}

func NewInvitationService(
	users ports.UserRepository,
	invites ports.InvitationRepository,
	mail MailEnqueuer,
	log zerolog.Logger,
) *InvitationService {
	return &InvitationService{users: users, invites: invites, mail: mail, log: log}
}

// Invite creates a pending invitation and enqueues its email. Rejected when
// the email already belongs to an active user or a live pending invitation;
// granting Owner by invitation follows the same owner-only restriction as a
// direct role change.
func (s *InvitationService) Invite(ctx context.Context, actorExternalID string, in ports.InviteInput) (*domain.Invitation, error) {
	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return nil, err
	}
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if in.Role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return nil, domain.ErrOwnerRoleRestricted
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("invite: %w", err)
	}
	if existing != nil && existing.IsActive {
		return nil, domain.ErrInviteeExists
	}

	// Best-effort single pending invitation per email: a live one blocks,
	// a stale one is replaced.
	now := time.Now().UTC()
	if pending, findErr := s.invites.FindPendingByEmail(ctx, email); findErr == nil {
		if !pending.IsExpired(now) {
			return nil, domain.ErrInvitationPending
		}
		if delErr := s.invites.Delete(ctx, pending.ID); delErr != nil {
			s.log.Warn().Err(delErr).Str("email", email).Msg("failed to replace stale invitation")
		}
	} else if !errors.Is(findErr, domain.ErrInvitationNotFound) {
		return nil, fmt.Errorf("invite: %w", findErr)
	}

	inv := &domain.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      in.Role,
		Token:     uuid.NewString(),
		InvitedBy: actor.ID,
		Status:    domain.InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InvitationTTL),
	}
	if err := s.invites.Insert(ctx, inv); err != nil {
		return nil, fmt.Errorf("invite: %w", err)
	}

	s.enqueueMail(actor, inv)

	s.log.Info().
		Str("actor", actor.ExternalID).
		Str("email", email).
		Str("role", string(in.Role)).
		Msg("invitation created")

	return inv, nil
}

// Resend recomputes the expiry window of a pending invitation and re-sends
// its email.
func (s *InvitationService) Resend(ctx context.Context, actorExternalID, invitationID string) (*domain.Invitation, error) {
	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return nil, err
	}
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}

	inv, err := s.invites.FindByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvitationPending {
		return nil, domain.ErrInvitationNotFound
	}

	inv.ExpiresAt = time.Now().UTC().Add(domain.InvitationTTL)
	if err := s.invites.UpdateExpiry(ctx, inv.ID, inv.ExpiresAt); err != nil {
		return nil, fmt.Errorf("resend invitation: %w", err)
	}

	s.enqueueMail(actor, inv)

	s.log.Info().Str("actor", actor.ExternalID).Str("email", inv.Email).Msg("invitation resent")
	return inv, nil
}

// Cancel removes an invitation outright. Invitations, unlike users, have no
// soft-delete state.
func (s *InvitationService) Cancel(ctx context.Context, actorExternalID, invitationID string) error {
	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return err
	}
	if err := requireManageUsers(actor); err != nil {
		return err
	}

	inv, err := s.invites.FindByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if err := s.invites.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("cancel invitation: %w", err)
	}

	s.log.Info().Str("actor", actor.ExternalID).Str("email", inv.Email).Msg("invitation cancelled")
	return nil
}

// ListPending returns stored-pending invitations; callers surface computed
// expiry through EffectiveStatus.
func (s *InvitationService) ListPending(ctx context.Context, actorExternalID string) ([]*domain.Invitation, error) {
	actor, err := s.resolveActor(ctx, actorExternalID)
	if err != nil {
		return nil, err
	}
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}

	invs, err := s.invites.ListByStatus(ctx, domain.InvitationPending)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

func (s *InvitationService) resolveActor(ctx context.Context, externalID string) (*domain.User, error) {
	actor, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
	}
	return actor, nil
}

func (s *InvitationService) enqueueMail(actor *domain.User, inv *domain.Invitation) {
	s.mail.Enqueue(ports.InvitationMail{
		Email:       inv.Email,
		Role:        inv.Role,
		InviterName: strings.TrimSpace(actor.FirstName + " " + actor.LastName),
		Token:       inv.Token,
		ExpiresAt:   inv.ExpiresAt.Format(time.RFC3339),
	})
}
