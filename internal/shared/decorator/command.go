// Package decorator wraps CQRS command and query handlers with
// cross-cutting logging, metrics, and tracing behavior, so individual
// handlers stay focused on their use case logic.
package decorator

import "context"

// CommandHandler executes a single command and returns its result.
type CommandHandler[C, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// ApplyCommandDecorators wraps base with logging, metrics, and tracing,
// with logging outermost: logging sees the call first, then metrics,
// then tracing, then base. Errors propagate through every layer unchanged.
func ApplyCommandDecorators[C, R any](
	base CommandHandler[C, R],
	logger Logger,
	tracerProvider TracerProvider,
	metricsClient MetricsClient,
) CommandHandler[C, R] {
	return commandLoggingDecorator[C, R]{
		base: commandMetricsDecorator[C, R]{
			base: commandTracingDecorator[C, R]{
				base:           base,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: logger,
	}
}
