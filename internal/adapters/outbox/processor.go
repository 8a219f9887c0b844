// Package outbox runs the relay side of the transactional outbox
// pattern: a periodic tick that claims due rows, sends each to the
// broker, and feeds the outcome to the circuit breaker and adaptive
// batch controller. The caller-facing write path lives in
// internal/outbox.
package outbox

import (
	"context"
	"time"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/relay/batch"
	"github.com/architeacher/outboxrelay/internal/relay/breaker"
	"github.com/architeacher/outboxrelay/internal/usecases"
	"github.com/architeacher/outboxrelay/internal/usecases/commands"
	"github.com/architeacher/outboxrelay/internal/usecases/queries"
)

var _ ports.BackgroundProcessor = (*Processor)(nil)

// Config bundles the tunables Processor needs beyond the
// RelayApplication it drives.
type Config struct {
	Outbox  config.OutboxConfig
	Relay   config.RelayConfig
	Breaker config.CircuitBreakerConfig
	BaseMs  int64
	CapMs   int64

	// ReplicaID identifies this relay instance in the shared
	// BatchSnapshotStore. SnapshotStore may be nil, in which case no
	// cross-replica telemetry is published or seeded.
	ReplicaID     string
	SnapshotStore ports.BatchSnapshotStore
}

// Processor drives the relay tick: breaker gate, batch-size query,
// claim, per-row publish, outcome reporting. One Processor instance is
// a single-writer scheduler, per the relay's tick procedure; running
// more than one against the same database is safe (skip-locked
// claiming) but breaks strict per-aggregate ordering.
type Processor struct {
	app     *usecases.RelayApplication
	cb      *breaker.CircuitBreaker
	bc      *batch.Controller
	cfg     config.OutboxConfig
	metrics infrastructure.Metrics
	logger  infrastructure.Logger

	pollInterval time.Duration
	maxRetries   int
	backoffBase  int64
	backoffCap   int64

	replicaID     string
	snapshotStore ports.BatchSnapshotStore
}

func NewProcessor(
	app *usecases.RelayApplication,
	cfg Config,
	metrics infrastructure.Metrics,
	logger infrastructure.Logger,
) *Processor {
	return &Processor{
		app: app,
		cb: breaker.New(breaker.Config{
			Name:      "outbox-relay",
			Window:    cfg.Breaker.Window,
			Threshold: cfg.Breaker.Threshold,
			Cooldown:  cfg.Breaker.Cooldown,
		}, logger),
		bc: batch.New(batch.Config{
			Min:     cfg.Relay.BatchSizeMin,
			Max:     cfg.Relay.BatchSizeMax,
			Initial: cfg.Relay.BatchSizeInit,
		}),
		cfg:          cfg.Outbox,
		metrics:      metrics,
		logger:       logger,
		pollInterval:  cfg.Relay.PollInterval,
		maxRetries:    cfg.Outbox.MaxRetries,
		backoffBase:   cfg.BaseMs,
		backoffCap:    cfg.CapMs,
		replicaID:     cfg.ReplicaID,
		snapshotStore: cfg.SnapshotStore,
	}
}

// Start runs the tick loop until ctx is cancelled. If a snapshot store
// is configured, it seeds the batch controller from the cluster's
// last-known size before entering the loop.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Info().Dur("poll_interval", p.pollInterval).Msg("starting outbox relay processor")

	p.seedFromSnapshot(ctx)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox relay processor shutting down")

			return ctx.Err()

		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick executes one poll: breaker gate, batch-size query, claim, send,
// outcome reporting, idle-tick widening.
func (p *Processor) tick(ctx context.Context) {
	p.metrics.RecordCircuitBreakerState(ctx, p.cb.State())

	if !p.cb.Allow() {
		p.logger.Debug().Msg("circuit breaker open, skipping tick")

		p.publishSnapshot(ctx)

		return
	}

	batchSize := p.bc.Size()
	p.metrics.RecordBatchSize(ctx, batchSize)

	rows, err := p.app.Queries.FetchPendingOutboxEventsQueryHandler.Handle(ctx, queries.FetchPendingOutboxEventsQuery{
		BatchSize: batchSize,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to claim pending outbox rows")

		p.publishSnapshot(ctx)

		return
	}

	if len(rows) == 0 {
		p.bc.RecordIdle()

		p.publishSnapshot(ctx)

		return
	}

	p.logger.Debug().Int("count", len(rows)).Int("batch_size", batchSize).Msg("processing claimed outbox rows")

	allSucceeded := true

	for _, row := range rows {
		if !p.publishRow(ctx, row) {
			allSucceeded = false
		}
	}

	if allSucceeded {
		p.bc.RecordFullSuccess()
	} else {
		p.bc.RecordFailure()
	}

	p.publishSnapshot(ctx)
}

// seedFromSnapshot adopts the cluster's last-known batch size, if a
// snapshot store is configured and has one, instead of starting this
// replica from its configured initial size.
func (p *Processor) seedFromSnapshot(ctx context.Context) {
	if p.snapshotStore == nil {
		return
	}

	snapshot, ok, err := p.snapshotStore.Load(ctx, p.replicaID)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to load batch snapshot, starting from configured initial size")

		return
	}

	if !ok {
		return
	}

	p.bc.SeedSize(snapshot.BatchSize)
}

// publishSnapshot reports this tick's batch size and breaker state to
// the shared store. Failures are logged, never fatal: other replicas
// simply keep whatever they last saw.
func (p *Processor) publishSnapshot(ctx context.Context) {
	if p.snapshotStore == nil {
		return
	}

	err := p.snapshotStore.Save(ctx, p.replicaID, ports.BatchSnapshot{
		BatchSize:    p.bc.Size(),
		BreakerState: p.cb.State(),
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to publish batch snapshot")
	}
}

// publishRow sends one claimed row through the circuit breaker and
// reports the outcome, returning whether the publish succeeded.
func (p *Processor) publishRow(ctx context.Context, row *domain.OutboxRow) bool {
	start := time.Now()

	breakerErr := p.cb.Execute(func() error {
		_, err := p.app.Commands.PublishOutboxEventHandler.Handle(ctx, commands.PublishOutboxEventCommand{
			Row:           row,
			Topic:         p.cfg.Topic,
			SendTimeout:   p.cfg.SendTimeout,
			MaxRetries:    p.maxRetries,
			BackoffBaseMs: p.backoffBase,
			BackoffCapMs:  p.backoffCap,
		})

		return err
	})

	published := breakerErr == nil

	outcome := "success"
	if !published {
		outcome = "failure"
	}

	p.metrics.RecordPublishDuration(ctx, time.Since(start), outcome)

	if !published {
		p.logger.Warn().
			Str("event_id", row.EventID.String()).
			Str("aggregate_type", row.AggregateType).
			Str("aggregate_id", row.AggregateID).
			Err(breakerErr).
			Msg("failed to publish outbox row")
	}

	return published
}
