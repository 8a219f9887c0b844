package infrastructure

import (
	"context"
	"net/http"
	"time"
)

type (
	NoOp struct{}

	NoOpMetrics struct{}
)

func (d NoOp) Inc(_ string, _ int) {
}

func (n *NoOpMetrics) RecordOutboxEvent(_ context.Context, _, _ string) {
}

func (n *NoOpMetrics) RecordPublishDuration(_ context.Context, _ time.Duration, _ string) {
}

func (n *NoOpMetrics) RecordBatchSize(_ context.Context, _ int) {
}

func (n *NoOpMetrics) RecordCircuitBreakerState(_ context.Context, _ string) {
}

func (n *NoOpMetrics) RecordCleanup(_ context.Context, _ int64) {
}

func (n *NoOpMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (n *NoOpMetrics) Shutdown(_ context.Context) error {
	return nil
}
