package adapters

import (
	"context"
	"strings"

	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/shared/decorator"
)

// MetricsAdapter bridges the generic decorator.MetricsClient used by
// command/query decorators onto the relay's concrete Metrics instrument set.
type MetricsAdapter struct {
	metrics infrastructure.Metrics
}

func NewMetricsAdapter(metrics infrastructure.Metrics) decorator.MetricsClient {
	return &MetricsAdapter{
		metrics: metrics,
	}
}

// Inc records one decorated handler invocation. key is "<handler>.success"
// or "<handler>.failure", as produced by the command/query decorators.
func (m *MetricsAdapter) Inc(key string, _ int) {
	outcome := "success"
	handler := key

	if idx := strings.LastIndex(key, "."); idx != -1 {
		handler = key[:idx]
		outcome = key[idx+1:]
	}

	m.metrics.RecordOutboxEvent(context.Background(), outcome, handler)
}
