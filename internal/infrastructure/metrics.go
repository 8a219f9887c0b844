//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	metricsNamespace = "outboxrelay"
)

type (
	//counterfeiter:generate -o ../mocks/metrics.go . Metrics

	Metrics interface {
		RecordOutboxEvent(ctx context.Context, outcome, eventType string)
		RecordPublishDuration(ctx context.Context, duration time.Duration, outcome string)
		RecordBatchSize(ctx context.Context, size int)
		RecordCircuitBreakerState(ctx context.Context, state string)
		RecordCleanup(ctx context.Context, deleted int64)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	OTELMetrics struct {
		meterProvider *sdkmetric.MeterProvider
		meter         metric.Meter
		logger        Logger

		outboxProcessedTotal    metric.Int64Counter
		publishDuration         metric.Float64Histogram
		batchSize               metric.Int64Histogram
		circuitBreakerStateGauge metric.Int64Gauge
		cleanupDeletedTotal     metric.Int64Counter
	}
)

func NewMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (Metrics, error) {
	if !cfg.Telemetry.Metrics.Enabled {
		logger.Info().Msg("metrics disabled, using NoOp implementation")

		return &NoOpMetrics{}, nil
	}

	return NewOTELMetrics(ctx, cfg, logger)
}

func NewOTELMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (*OTELMetrics, error) {
	endpoint := fmt.Sprintf("%s:%s", cfg.Telemetry.OtelGRPCHost, cfg.Telemetry.OtelGRPCPort)

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTEL collector: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		metricsNamespace,
		metric.WithInstrumentationVersion(cfg.AppConfig.ServiceVersion),
	)

	logger.With().Str("component", "metrics")

	provider := &OTELMetrics{
		meterProvider: meterProvider,
		meter:         meter,
		logger:        logger,
	}

	if err := provider.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Info().
		Str("otel_endpoint", endpoint).
		Msg("OTEL metrics provider initialized successfully")

	return provider, nil
}

func (om *OTELMetrics) initializeMetrics() error {
	var err error

	om.outboxProcessedTotal, err = om.meter.Int64Counter(
		"outbox_events_total",
		metric.WithDescription("Total number of outbox rows the relay has attempted to publish"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox_events_total counter: %w", err)
	}

	om.publishDuration, err = om.meter.Float64Histogram(
		"outbox_publish_duration_seconds",
		metric.WithDescription("Time spent sending a claimed row to the broker"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox_publish_duration_seconds histogram: %w", err)
	}

	om.batchSize, err = om.meter.Int64Histogram(
		"outbox_batch_size",
		metric.WithDescription("Batch size chosen by the adaptive batch controller for each tick"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox_batch_size histogram: %w", err)
	}

	om.circuitBreakerStateGauge, err = om.meter.Int64Gauge(
		"outbox_circuit_breaker_state",
		metric.WithDescription("Current relay circuit breaker state: 0=closed, 1=half-open, 2=open"),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox_circuit_breaker_state gauge: %w", err)
	}

	om.cleanupDeletedTotal, err = om.meter.Int64Counter(
		"outbox_cleanup_deleted_total",
		metric.WithDescription("Total number of terminal rows removed by the cleanup tick"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox_cleanup_deleted_total counter: %w", err)
	}

	return nil
}

func (om *OTELMetrics) RecordOutboxEvent(ctx context.Context, outcome, eventType string) {
	om.outboxProcessedTotal.Add(ctx, 1,
		metric.WithAttributes(
			StatusAttr(outcome),
			EventTypeAttr(eventType),
		),
	)
}

func (om *OTELMetrics) RecordPublishDuration(ctx context.Context, duration time.Duration, outcome string) {
	om.publishDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			StatusAttr(outcome),
		),
	)
}

func (om *OTELMetrics) RecordBatchSize(ctx context.Context, size int) {
	om.batchSize.Record(ctx, int64(size))
}

func (om *OTELMetrics) RecordCircuitBreakerState(ctx context.Context, state string) {
	var level int64

	switch state {
	case "half-open":
		level = 1
	case "open":
		level = 2
	}

	om.circuitBreakerStateGauge.Record(ctx, level)
}

func (om *OTELMetrics) RecordCleanup(ctx context.Context, deleted int64) {
	om.cleanupDeletedTotal.Add(ctx, deleted)
}

func (om *OTELMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (om *OTELMetrics) Shutdown(ctx context.Context) error {
	if err := om.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
