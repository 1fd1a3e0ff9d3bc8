package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/domain"
	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// SyncService reconciles identity-provider events and client-observed
// sessions into the local User collection. Both triggers converge on the
// same repository upsert; the store's unique index on external id is the
// only serialization primitive.
type SyncService struct {
	users    ports.UserRepository
	attempts ports.AttemptTracker
	log      zerolog.Logger
}

func NewSyncService(users ports.UserRepository, attempts ports.AttemptTracker, log zerolog.Logger) *SyncService {
	return &SyncService{users: users, attempts: attempts, log: log}
}

// Upsert inserts or patches the record for in.ExternalID. Profile fields are
// refreshed on every call; role is written only when explicitly supplied,
// otherwise new records get the default role and existing records keep
// theirs. The operation is idempotent.
func (s *SyncService) Upsert(ctx context.Context, in ports.ProfileInput) (*domain.User, error) {
	if in.ExternalID == "" || in.Email == "" {
		return nil, fmt.Errorf("sync upsert: %w", domain.ErrInvalidProfile)
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, fmt.Errorf("sync upsert: %w", domain.ErrInvalidRole)
	}

	user, err := s.users.Upsert(ctx, ports.UpsertUserInput{
		ExternalID: in.ExternalID,
		Email:      in.Email,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		AvatarURL:  in.AvatarURL,
		Role:       in.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("sync upsert: %w", err)
	}

	s.log.Info().
		Str("external_id", in.ExternalID).
		Str("trigger", in.Trigger).
		Str("role", string(user.Role)).
		Msg("identity synced")

	return user, nil
}

// EnsureUser is the client-observed sync entry. A per-identity attempt flag
// bounds how often a rendering loop can trigger the write path: once marked,
// repeat calls short-circuit to a read while the mark lives. The mark is
// cleared on failure so the next request cycle can retry.
func (s *SyncService) EnsureUser(ctx context.Context, in ports.ProfileInput) (*domain.User, error) {
	attempted, err := s.attempts.Attempted(ctx, in.ExternalID)
	if err != nil {
		s.log.Warn().Err(err).Str("external_id", in.ExternalID).Msg("attempt check failed, syncing anyway")
	} else if attempted {
		if user, findErr := s.users.FindByExternalID(ctx, in.ExternalID); findErr == nil {
			s.log.Debug().Str("external_id", in.ExternalID).Msg("sync already attempted, record present")
			return user, nil
		}
	}

	if markErr := s.attempts.Mark(ctx, in.ExternalID); markErr != nil {
		s.log.Warn().Err(markErr).Str("external_id", in.ExternalID).Msg("failed to mark sync attempt")
	}

	user, err := s.Upsert(ctx, in)
	if err != nil {
		if clearErr := s.attempts.Clear(ctx, in.ExternalID); clearErr != nil {
			s.log.Warn().Err(clearErr).Str("external_id", in.ExternalID).Msg("failed to clear sync attempt")
		}
		return nil, err
	}
	return user, nil
}

// DeactivateByExternalID handles a provider deletion event. The record keeps
// everything except its active flag. A missing record is a no-op success:
// the identity may already have been removed by another path.
func (s *SyncService) DeactivateByExternalID(ctx context.Context, externalID string) error {
	if externalID == "" {
		return fmt.Errorf("sync deactivate: %w", domain.ErrInvalidProfile)
	}

	found, err := s.users.DeactivateByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("sync deactivate: %w", err)
	}
	if !found {
		s.log.Info().Str("external_id", externalID).Msg("deletion event for unknown identity, ignoring")
		return nil
	}

	s.log.Info().Str("external_id", externalID).Msg("identity deactivated")
	return nil
}

// CurrentUser resolves the local record for an external id. Callers treat
// domain.ErrUserNotFound as "mid-sync": authenticated but not yet resolvable,
// which every authorization decision counts as a deny.
func (s *SyncService) CurrentUser(ctx context.Context, externalID string) (*domain.User, error) {
	user, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}
