package infrastructure

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/architeacher/outboxrelay/internal/config"
)

// Cache owns the Redis connection shared by the batch controller's
// cross-replica snapshot and the direct publisher's dedupe cache. Both
// are best-effort telemetry/idempotency aids, never a source of truth:
// callers must treat every Cache error as non-fatal.
type Cache struct {
	client *redis.Client
}

// NewCache builds a Cache client for cfg, verifying connectivity with a
// ping before returning.
func NewCache(ctx context.Context, cfg config.CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Client returns the underlying go-redis client for callers that need
// direct access (SnapshotStore, DedupeCache).
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}

	return c.client.Close()
}
