package usecases

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
	"github.com/architeacher/outboxrelay/internal/shared/decorator"
	"github.com/architeacher/outboxrelay/internal/usecases/commands"
	"github.com/architeacher/outboxrelay/internal/usecases/queries"
)

type (
	// RelayCommands bundles the command handlers the relay tick and the
	// cleanup tick invoke.
	RelayCommands struct {
		PublishOutboxEventHandler  commands.PublishOutboxEventHandler
		CleanupOutboxEventsHandler commands.CleanupOutboxEventsHandler
	}

	// RelayQueries bundles the query handlers the relay tick and operator
	// tooling invoke.
	RelayQueries struct {
		FetchPendingOutboxEventsQueryHandler      queries.FetchPendingOutboxEventsQueryHandler
		FetchOutboxEventsByAggregateQueryHandler  queries.FetchOutboxEventsByAggregateQueryHandler
		FetchOutboxEventsByStatusQueryHandler     queries.FetchOutboxEventsByStatusQueryHandler
	}

	// RelayApplication is the CQRS facade the outbox processor and the
	// cleanup tick depend on.
	RelayApplication struct {
		Commands RelayCommands
		Queries  RelayQueries
	}
)

func NewRelayApplication(
	repo ports.OutboxRepository,
	broker ports.BrokerClient,
	clk clock.Clock,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) *RelayApplication {
	return &RelayApplication{
		Commands: RelayCommands{
			PublishOutboxEventHandler: commands.NewPublishOutboxEventHandler(
				broker, repo, clk, logger, tracerProvider, metricsClient,
			),
			CleanupOutboxEventsHandler: commands.NewCleanupOutboxEventsHandler(
				repo, logger, tracerProvider, metricsClient,
			),
		},
		Queries: RelayQueries{
			FetchPendingOutboxEventsQueryHandler: queries.NewFetchPendingOutboxEventsQueryHandler(
				repo, logger, tracerProvider, metricsClient,
			),
			FetchOutboxEventsByAggregateQueryHandler: queries.NewFetchOutboxEventsByAggregateQueryHandler(
				repo, logger, tracerProvider, metricsClient,
			),
			FetchOutboxEventsByStatusQueryHandler: queries.NewFetchOutboxEventsByStatusQueryHandler(
				repo, logger, tracerProvider, metricsClient,
			),
		},
	}
}
