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
	// FetchOutboxEventsByAggregateQuery returns the event history for one
	// aggregate, most recent first, for operator inspection and debugging.
	FetchOutboxEventsByAggregateQuery struct {
		AggregateType string
		AggregateID   string
		Limit         int
	}

	FetchOutboxEventsByAggregateQueryHandler decorator.QueryHandler[FetchOutboxEventsByAggregateQuery, []*domain.OutboxRow]

	fetchOutboxEventsByAggregateQueryHandler struct {
		repo ports.OutboxRepository
	}
)

func NewFetchOutboxEventsByAggregateQueryHandler(
	repo ports.OutboxRepository,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchOutboxEventsByAggregateQueryHandler {
	return decorator.ApplyQueryDecorators[FetchOutboxEventsByAggregateQuery, []*domain.OutboxRow](
		fetchOutboxEventsByAggregateQueryHandler{repo: repo},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchOutboxEventsByAggregateQueryHandler) Handle(
	ctx context.Context,
	query FetchOutboxEventsByAggregateQuery,
) ([]*domain.OutboxRow, error) {
	return h.repo.FindByAggregate(ctx, query.AggregateType, query.AggregateID, query.Limit)
}
