package commands

import (
	"context"
	"time"

	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/shared/decorator"
)

const cleanupBatchSize = 1000

type (
	// CleanupOutboxEventsCommand purges PUBLISHED rows older than
	// RetentionDays. FAILED rows are never auto-deleted; they require
	// operator inspection.
	CleanupOutboxEventsCommand struct {
		RetentionDays int
	}

	CleanupOutboxEventsResult struct {
		Deleted int64
	}

	CleanupOutboxEventsHandler decorator.CommandHandler[CleanupOutboxEventsCommand, CleanupOutboxEventsResult]

	cleanupOutboxEventsHandler struct {
		repo ports.OutboxRepository
	}
)

func NewCleanupOutboxEventsHandler(
	repo ports.OutboxRepository,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) CleanupOutboxEventsHandler {
	return decorator.ApplyCommandDecorators[CleanupOutboxEventsCommand, CleanupOutboxEventsResult](
		cleanupOutboxEventsHandler{repo: repo},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h cleanupOutboxEventsHandler) Handle(ctx context.Context, cmd CleanupOutboxEventsCommand) (CleanupOutboxEventsResult, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -cmd.RetentionDays)

	var total int64

	for {
		deleted, err := h.repo.DeleteByStatusAndOccurredAtBefore(ctx, domain.OutboxStatusPublished, cutoff, cleanupBatchSize)
		if err != nil {
			return CleanupOutboxEventsResult{Deleted: total}, err
		}

		total += deleted

		if deleted < cleanupBatchSize {
			break
		}
	}

	return CleanupOutboxEventsResult{Deleted: total}, nil
}
