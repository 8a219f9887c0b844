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
	// FetchOutboxEventsByStatusQuery lists rows in a given status, oldest
	// first, primarily used by operator tooling to inspect FAILED rows.
	FetchOutboxEventsByStatusQuery struct {
		Status domain.OutboxStatus
		Limit  int
	}

	FetchOutboxEventsByStatusQueryHandler decorator.QueryHandler[FetchOutboxEventsByStatusQuery, []*domain.OutboxRow]

	fetchOutboxEventsByStatusQueryHandler struct {
		repo ports.OutboxRepository
	}
)

func NewFetchOutboxEventsByStatusQueryHandler(
	repo ports.OutboxRepository,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchOutboxEventsByStatusQueryHandler {
	return decorator.ApplyQueryDecorators[FetchOutboxEventsByStatusQuery, []*domain.OutboxRow](
		fetchOutboxEventsByStatusQueryHandler{repo: repo},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchOutboxEventsByStatusQueryHandler) Handle(
	ctx context.Context,
	query FetchOutboxEventsByStatusQuery,
) ([]*domain.OutboxRow, error) {
	return h.repo.FindByStatus(ctx, query.Status, query.Limit)
}
