package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/architeacher/outboxrelay/internal/ports"
)

const dedupeKeyPrefix = "outboxrelay:dlq-dedupe:"

var _ ports.DedupeCache = (*DedupeCache)(nil)

// DedupeCache marks a key seen via Redis SETNX, reporting whether it
// was already present. Used as an idempotency fast-check before the
// direct publisher writes a failed-event record to the DLQ, so retrying
// the same failing publish doesn't write duplicate DLQ records.
type DedupeCache struct {
	client *redis.Client
}

func NewDedupeCache(client *redis.Client) *DedupeCache {
	return &DedupeCache{client: client}
}

func (d *DedupeCache) SeenOrMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	marked, err := d.client.SetNX(ctx, dedupeKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe check: %w", err)
	}

	return !marked, nil
}
