// Package cache adapts Redis onto the two best-effort cross-cutting
// concerns the relay shares through it: batch/breaker telemetry across
// replicas, and the direct publisher's DLQ dedupe check.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/architeacher/outboxrelay/internal/ports"
)

const snapshotKeyPrefix = "outboxrelay:batch-snapshot:"

// snapshotTTL bounds how long a stale replica's last-known snapshot
// stays visible to the rest of the cluster after it stops updating.
const snapshotTTL = 5 * time.Minute

var _ ports.BatchSnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore publishes and reads BatchSnapshot records from Redis,
// one key per replica. It is never consulted to decide a tick's
// outcome — only to seed a freshly-started replica's initial batch
// size and to give operators cluster-wide visibility.
type SnapshotStore struct {
	client *redis.Client
}

func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

func (s *SnapshotStore) Save(ctx context.Context, replicaID string, snapshot ports.BatchSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal batch snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKeyPrefix+replicaID, body, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("save batch snapshot: %w", err)
	}

	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, replicaID string) (ports.BatchSnapshot, bool, error) {
	body, err := s.client.Get(ctx, snapshotKeyPrefix+replicaID).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.BatchSnapshot{}, false, nil
	}

	if err != nil {
		return ports.BatchSnapshot{}, false, fmt.Errorf("load batch snapshot: %w", err)
	}

	var snapshot ports.BatchSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return ports.BatchSnapshot{}, false, fmt.Errorf("unmarshal batch snapshot: %w", err)
	}

	return snapshot, true, nil
}
