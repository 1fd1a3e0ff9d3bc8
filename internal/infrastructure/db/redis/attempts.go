package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultAttemptTTL = 5 * time.Minute

// AttemptTracker records client-observed sync attempts per external id. The
// TTL doubles as the retry backoff window: while a mark lives, repeat sync
// calls short-circuit to a read; once it expires a fresh attempt is allowed
// even if an earlier Clear was lost.
// Key format: sync:attempt:<external_id>
type AttemptTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAttemptTracker creates an AttemptTracker. ttl <= 0 selects the default.
func NewAttemptTracker(client *redis.Client, ttl time.Duration) *AttemptTracker {
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &AttemptTracker{client: client, ttl: ttl}
}

// Attempted reports whether a sync attempt is currently recorded.
func (t *AttemptTracker) Attempted(ctx context.Context, externalID string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(externalID)).Result()
	if err != nil {
		return false, fmt.Errorf("attempt check: %w", err)
	}
	return n > 0, nil
}

// Mark records an attempt before the write is made.
func (t *AttemptTracker) Mark(ctx context.Context, externalID string) error {
	return t.client.Set(ctx, t.key(externalID), "1", t.ttl).Err()
}

// Clear removes the mark after a failed attempt so the next request cycle
// may retry immediately.
func (t *AttemptTracker) Clear(ctx context.Context, externalID string) error {
	return t.client.Del(ctx, t.key(externalID)).Err()
}

func (t *AttemptTracker) key(externalID string) string {
	return "sync:attempt:" + externalID
}
