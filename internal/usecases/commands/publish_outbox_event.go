package commands

import (
	"context"
	"time"

	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
	"github.com/architeacher/outboxrelay/internal/shared/decorator"
)

type (
	// PublishOutboxEventCommand sends one claimed row to the broker and
	// advances its state machine depending on the outcome.
	PublishOutboxEventCommand struct {
		Row          *domain.OutboxRow
		Topic        string
		SendTimeout  time.Duration
		MaxRetries   int
		BackoffBaseMs int64
		BackoffCapMs  int64
	}

	// PublishOutboxEventResult reports whether the send succeeded. A
	// failed send also returns the broker error, and that error is what
	// the relay loop feeds to its circuit breaker and batch controller.
	PublishOutboxEventResult struct {
		Published bool
	}

	PublishOutboxEventHandler decorator.CommandHandler[PublishOutboxEventCommand, PublishOutboxEventResult]

	publishOutboxEventHandler struct {
		broker ports.BrokerClient
		repo   ports.OutboxRepository
		clock  clock.Clock
		logger infrastructure.Logger
	}
)

func NewPublishOutboxEventHandler(
	broker ports.BrokerClient,
	repo ports.OutboxRepository,
	clk clock.Clock,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) PublishOutboxEventHandler {
	return decorator.ApplyCommandDecorators[PublishOutboxEventCommand, PublishOutboxEventResult](
		publishOutboxEventHandler{
			broker: broker,
			repo:   repo,
			clock:  clk,
			logger: logger,
		},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h publishOutboxEventHandler) Handle(ctx context.Context, cmd PublishOutboxEventCommand) (PublishOutboxEventResult, error) {
	row := cmd.Row

	_, sendErr := h.broker.Send(ctx, cmd.Topic, row.EventID.String(), row.Payload, cmd.SendTimeout)
	if sendErr == nil {
		if err := h.repo.MarkPublished(ctx, row.EventID, h.clock.Now()); err != nil {
			return PublishOutboxEventResult{}, err
		}

		return PublishOutboxEventResult{Published: true}, nil
	}

	nextRetryAt := h.clock.Now().Add(backoffDuration(row.RetryCount, cmd.BackoffBaseMs, cmd.BackoffCapMs))

	if err := h.repo.MarkRetry(ctx, row.EventID, sendErr.Error(), nextRetryAt, cmd.MaxRetries); err != nil {
		return PublishOutboxEventResult{}, err
	}

	return PublishOutboxEventResult{Published: false}, sendErr
}

// backoffDuration computes min(2^retryCount * baseMs, capMs) in
// milliseconds, per spec's relay retry schedule.
func backoffDuration(retryCount int, baseMs, capMs int64) time.Duration {
	backoff := baseMs
	for i := 0; i < retryCount && backoff < capMs; i++ {
		backoff *= 2
	}

	if backoff > capMs {
		backoff = capMs
	}

	return time.Duration(backoff) * time.Millisecond
}
