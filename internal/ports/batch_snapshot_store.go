//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

import (
	"context"
	"time"
)

// BatchSnapshot is the cross-replica telemetry record one relay
// instance publishes after each tick, so other replicas (or an
// operator dashboard) can see the cluster's current batch size and
// breaker state without scraping each instance individually.
type BatchSnapshot struct {
	BatchSize    int
	BreakerState string
	UpdatedAt    time.Time
}

//counterfeiter:generate -o ../mocks/batch_snapshot_store.go . BatchSnapshotStore

// BatchSnapshotStore is a best-effort telemetry sink, never a control
// channel: a Save/Load failure must never block or alter a relay tick.
type BatchSnapshotStore interface {
	Save(ctx context.Context, replicaID string, snapshot BatchSnapshot) error
	Load(ctx context.Context, replicaID string) (BatchSnapshot, bool, error)
}
