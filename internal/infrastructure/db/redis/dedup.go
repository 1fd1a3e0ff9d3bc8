package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryTTL = 24 * time.Hour

// DeliveryDedup tracks webhook delivery ids so a redelivered event is
// acknowledged without reprocessing. The upsert itself is idempotent; this
// only saves the store round-trips and keeps logs clean.
// Key format: webhook:delivery:<message_id>
type DeliveryDedup struct {
	client *redis.Client
}

// NewDeliveryDedup creates a DeliveryDedup wrapping the given Redis client.
func NewDeliveryDedup(client *redis.Client) *DeliveryDedup {
	return &DeliveryDedup{client: client}
}

// IsDuplicate reports whether this delivery id has already been handled.
func (d *DeliveryDedup) IsDuplicate(ctx context.Context, messageID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records a successfully handled delivery. Called only after handling
// succeeds, so a failed delivery stays eligible for provider redelivery.
func (d *DeliveryDedup) Mark(ctx context.Context, messageID string) error {
	return d.client.Set(ctx, d.key(messageID), "1", deliveryTTL).Err()
}

func (d *DeliveryDedup) key(messageID string) string {
	return "webhook:delivery:" + messageID
}
