package decorator

import "context"

// QueryHandler executes a single query and returns its result.
type QueryHandler[Q, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// ApplyQueryDecorators wraps base the same way ApplyCommandDecorators
// does, for the query side of the CQRS split.
func ApplyQueryDecorators[Q, R any](
	base QueryHandler[Q, R],
	logger Logger,
	tracerProvider TracerProvider,
	metricsClient MetricsClient,
) QueryHandler[Q, R] {
	return queryLoggingDecorator[Q, R]{
		base: queryMetricsDecorator[Q, R]{
			base: queryTracingDecorator[Q, R]{
				base:           base,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: logger,
	}
}
