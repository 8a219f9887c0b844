package queries

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/shared/decorator"
)

type (
	// FetchPendingOutboxEventsQuery claims up to BatchSize due rows for
	// this tick, via the repository's skip-locked claim query.
	FetchPendingOutboxEventsQuery struct {
		BatchSize int
	}

	FetchPendingOutboxEventsQueryHandler decorator.QueryHandler[FetchPendingOutboxEventsQuery, []*domain.OutboxRow]

	fetchPendingOutboxEventsQueryHandler struct {
		repo ports.OutboxRepository
	}
)

func NewFetchPendingOutboxEventsQueryHandler(
	repo ports.OutboxRepository,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchPendingOutboxEventsQueryHandler {
	return decorator.ApplyQueryDecorators[FetchPendingOutboxEventsQuery, []*domain.OutboxRow](
		fetchPendingOutboxEventsQueryHandler{repo: repo},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchPendingOutboxEventsQueryHandler) Handle(
	ctx context.Context,
	query FetchPendingOutboxEventsQuery,
) ([]*domain.OutboxRow, error) {
	return h.repo.FindPendingForProcessing(ctx, query.BatchSize)
}
