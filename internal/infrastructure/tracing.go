package infrastructure

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/architeacher/outboxrelay/internal/config"
)

// newResource builds the OTel resource describing this process,
// shared by both the trace and metric providers.
func newResource(ctx context.Context, appCfg config.AppConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(appCfg.ServiceName),
			semconv.ServiceVersionKey.String(appCfg.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(appCfg.CommitSHA),
			semconv.DeploymentEnvironmentKey.String(appCfg.Env),
		),
	)
}

// InitTracing wires the process-wide TracerProvider. When tracing is
// disabled it installs a no-op provider so that callers can keep
// threading otel.GetTracerProvider() through the dependency graph
// unconditionally. The returned shutdown func flushes any buffered
// spans and must be called during graceful shutdown.
func InitTracing(ctx context.Context, cfg config.ServiceConfig, logger Logger) (func(context.Context) error, error) {
	if !cfg.Telemetry.Traces.Enabled {
		logger.Info().Msg("tracing disabled, using no-op tracer provider")

		otel.SetTracerProvider(noop.NewTracerProvider())

		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := newResource(ctx, cfg.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Telemetry.Traces.SamplerRatio)),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info().Str("exporter", cfg.Telemetry.ExporterType).Msg("tracing provider initialized")

	return tracerProvider.Shutdown, nil
}

func newTraceExporter(ctx context.Context, cfg config.ServiceConfig) (sdktrace.SpanExporter, error) {
	if cfg.Telemetry.ExporterType == "stdout" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}

	endpoint := fmt.Sprintf("%s:%s", cfg.Telemetry.OtelGRPCHost, cfg.Telemetry.OtelGRPCPort)

	return otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
}
