package runtime

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/hashicorp/vault/api"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/internal/directpublish"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/usecases"
)

type (
	// Applications bundles the CQRS facades and the direct-publish path
	// the relay process exposes to its host application.
	Applications struct {
		Relay           *usecases.RelayApplication
		DirectPublisher *directpublish.Publisher
	}

	// ApplicationWorkers bundles the background loops started by the
	// dispatcher: the relay tick and the cleanup tick, both speaking the
	// same BackgroundProcessor contract so the dispatcher can start and
	// stop them uniformly.
	ApplicationWorkers struct {
		RelayProcessor ports.BackgroundProcessor
		CleanupTick    ports.BackgroundProcessor
	}

	TracerShutdownFunc func(ctx context.Context) error

	InfrastructureDeps struct {
		MetricsServer       *http.Server
		SecretStorageClient *api.Client
		StorageClient       *infrastructure.Storage
		QueueClient         infrastructure.Queue
		Metrics             infrastructure.Metrics
		CacheClient         *infrastructure.Cache
	}

	Repos struct {
		SecretStorageRepo ports.SecretsRepository
		OutboxRepo        ports.OutboxRepository
	}

	Dependencies struct {
		Apps    Applications
		Workers ApplicationWorkers

		cfg          *config.ServiceConfig
		configLoader *config.Loader

		logger infrastructure.Logger

		Infra InfrastructureDeps
		Repos Repos

		tracerShutdownFunc TracerShutdownFunc
		secretVersion      uint
	}
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*Dependencies, error) {
	cfg, err := config.Init()
	if err != nil {
		return nil, fmt.Errorf("unable to load service configuration: %w", err)
	}

	appLogger := infrastructure.NewLogger(cfg.AppConfig, cfg.Logging)

	appLogger.Info().Msg("initializing dependencies...")

	deps := &Dependencies{
		cfg:    cfg,
		logger: appLogger,
	}

	options := append(defaultOptions(ctx), opts...)

	for _, opt := range options {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	deps.logger.Info().Msg("dependencies initialized successfully")

	return deps, nil
}

// initMetricsServer exposes the OTEL/Prometheus bridge's collect
// handler on its own port, independent of the relay's internal ticks.
func initMetricsServer(cfg config.Metrics, metrics infrastructure.Metrics, logger infrastructure.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    net.JoinHostPort("", fmt.Sprintf("%d", cfg.Port)),
		Handler: mux,
	}

	logger.Info().Str("addr", server.Addr).Msg("metrics server created")

	return server
}
