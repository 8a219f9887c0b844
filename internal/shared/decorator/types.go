package decorator

import (
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/outboxrelay/internal/infrastructure"
)

// Logger is the structured logger every decorator writes through.
type Logger = infrastructure.Logger

// TracerProvider is the otel tracer provider used to start handler spans.
type TracerProvider = otelTrace.TracerProvider

// MetricsClient is the minimal counter surface decorators emit to.
// Adapters (e.g. Prometheus) implement it over their own client.
type MetricsClient interface {
	Inc(key string, value int)
}

const tracerName = "github.com/architeacher/outboxrelay/internal/shared/decorator"
