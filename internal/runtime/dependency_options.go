package runtime

import (
	"context"
	"fmt"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"

	"github.com/architeacher/outboxrelay/internal/adapters"
	"github.com/architeacher/outboxrelay/internal/adapters/broker"
	"github.com/architeacher/outboxrelay/internal/adapters/cache"
	"github.com/architeacher/outboxrelay/internal/adapters/outbox"
	"github.com/architeacher/outboxrelay/internal/adapters/repos"
	"github.com/architeacher/outboxrelay/internal/config"
	outboxcontext "github.com/architeacher/outboxrelay/internal/context"
	"github.com/architeacher/outboxrelay/internal/directpublish"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
	"github.com/architeacher/outboxrelay/internal/idgen"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/shared/backoff"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
	"github.com/architeacher/outboxrelay/internal/usecases"
)

type (
	DependencyOption func(*Dependencies) error
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithTracing(ctx),
		WithSecretStorage(ctx),
		WithStorage(),
		WithMetrics(ctx),
		WithQueue(),
		WithCache(ctx),
		WithRelay(),
		WithDirectPublish(),
	}
}

// replicaID identifies this process in the shared batch-snapshot store.
// It falls back to "unknown" rather than failing startup when the
// hostname can't be read.
func replicaID() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return host
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		tracerShutdownFunc, err := infrastructure.InitTracing(ctx, *d.cfg, d.logger)
		if err != nil {
			d.logger.Error().Err(err).Msg("failed to initialize global tracer")

			return err
		}

		d.tracerShutdownFunc = tracerShutdownFunc

		return nil
	}
}

func WithSecretStorage(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		secretStorageClient, err := infrastructure.NewVaultClient(d.cfg.SecretStorage)
		if err != nil {
			return fmt.Errorf("unable to create vault client: %w", err)
		}

		storageRepo := repos.NewVaultRepository(secretStorageClient)

		if d.cfg.SecretStorage.Enabled {
			loader := config.NewLoader(d.cfg, storageRepo, 0)

			version, err := loader.Load(ctx, storageRepo, d.cfg)
			if err != nil {
				return fmt.Errorf("unable to load service configuration: %w", err)
			}

			d.configLoader = loader
			d.secretVersion = version
		} else {
			d.logger.Info().Msg("secret storage is disabled, skipping vault configuration loading")
		}

		d.Infra.SecretStorageClient = secretStorageClient
		d.Repos.SecretStorageRepo = storageRepo

		return nil
	}
}

func WithStorage() DependencyOption {
	return func(d *Dependencies) error {
		storage, err := infrastructure.NewStorage(d.cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}

		if _, err := storage.GetDB(); err != nil {
			return fmt.Errorf("failed to get database connection: %w", err)
		}

		d.Infra.StorageClient = storage

		return nil
	}
}

func WithMetrics(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		metrics, err := infrastructure.NewMetrics(ctx, *d.cfg, d.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		d.Infra.Metrics = metrics

		if d.cfg.Telemetry.Metrics.Enabled {
			d.Infra.MetricsServer = initMetricsServer(d.cfg.Telemetry.Metrics, metrics, d.logger)
		}

		return nil
	}
}

func WithQueue() DependencyOption {
	return func(d *Dependencies) error {
		queueClient := infrastructure.NewQueue(d.cfg.Queue, d.logger)

		if err := queueClient.Connect(); err != nil {
			return fmt.Errorf("failed to connect to queue: %w", err)
		}

		if err := queueClient.DeclareExchange(d.cfg.Queue.ExchangeName, amqp.ExchangeTopic, true, false); err != nil {
			return fmt.Errorf("failed to declare exchange: %w", err)
		}

		if _, err := queueClient.DeclareQueue(d.cfg.Queue.QueueName, true, false); err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}

		if err := queueClient.BindQueue(d.cfg.Queue.QueueName, d.cfg.Queue.RoutingKey, d.cfg.Queue.ExchangeName); err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}

		d.Infra.QueueClient = queueClient

		return nil
	}
}

// WithCache connects the Redis client shared by the batch controller's
// cross-replica snapshot and the direct publisher's DLQ dedupe cache.
// NewCache fails fast on a bad address or an unreachable server, and
// WithCache returns that error, so startup aborts. The snapshot store
// and dedupe cache fall back to per-replica-only behavior only when
// Dependencies.Infra.CacheClient is nil, i.e. when WithCache is not in
// the option list.
func WithCache(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		cacheClient, err := infrastructure.NewCache(ctx, d.cfg.Cache)
		if err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}

		d.Infra.CacheClient = cacheClient

		return nil
	}
}

// WithDirectPublish wires the C9 fast path: envelope assembly, direct
// broker sends with exponential backoff, and DLQ fallback on exhaustion.
// Host applications reach it through Dependencies.Apps.DirectPublisher
// instead of going through the outbox for events that don't need
// transactional atomicity with a database write.
func WithDirectPublish() DependencyOption {
	return func(d *Dependencies) error {
		var idOpts []idgen.Option
		if d.cfg.IDGenerator.WorkerID >= 0 {
			idOpts = append(idOpts, idgen.WithWorkerID(d.cfg.IDGenerator.WorkerID))
		}

		idGenerator, err := idgen.New(clock.System{}, d.logger, idOpts...)
		if err != nil {
			return fmt.Errorf("failed to initialize id generator: %w", err)
		}

		metadata := outboxcontext.NewProvider(domain.Source{
			Service:     d.cfg.AppConfig.ServiceName,
			Environment: d.cfg.AppConfig.Env,
			InstanceID:  replicaID(),
			Version:     d.cfg.AppConfig.ServiceVersion,
		})

		factory := envelope.NewFactory(idGenerator, clock.System{}, metadata)
		validator := envelope.NewValidator()

		brokerClient := broker.NewRabbitMQClient(d.Infra.QueueClient)

		var dedupe ports.DedupeCache
		if d.Infra.CacheClient != nil {
			dedupe = cache.NewDedupeCache(d.Infra.CacheClient.Client())
		}

		dlq := directpublish.NewDLQ(
			brokerClient,
			d.cfg.DirectPublish.DLQTopic,
			d.cfg.DirectPublish.SendTimeout,
			d.cfg.DirectPublish.DLQBackupDir,
			d.logger,
			dedupe,
		)

		d.Apps.DirectPublisher = directpublish.NewPublisher(
			factory,
			validator,
			brokerClient,
			backoff.NewExponentialStrategy(d.cfg.Backoff),
			directpublish.Config{
				Topic:       d.cfg.DirectPublish.Topic,
				DLQTopic:    d.cfg.DirectPublish.DLQTopic,
				MaxAttempts: d.cfg.DirectPublish.MaxAttempts,
				SendTimeout: d.cfg.DirectPublish.SendTimeout,
			},
			d.logger,
			dlq,
		)

		return nil
	}
}

// WithRelay wires the OutboxRepository, the broker client, and the
// RelayApplication, then prepares the relay tick and the cleanup tick
// as the process's two background workers.
func WithRelay() DependencyOption {
	return func(d *Dependencies) error {
		db, err := d.Infra.StorageClient.GetDB()
		if err != nil {
			return fmt.Errorf("failed to get database connection: %w", err)
		}

		outboxRepo := repos.NewOutboxRepository(db)
		d.Repos.OutboxRepo = outboxRepo

		brokerClient := broker.NewRabbitMQClient(d.Infra.QueueClient)

		metricsAdapter := adapters.NewMetricsAdapter(d.Infra.Metrics)

		d.Apps.Relay = usecases.NewRelayApplication(
			outboxRepo,
			brokerClient,
			clock.System{},
			d.logger,
			otel.GetTracerProvider(),
			metricsAdapter,
		)

		var snapshotStore ports.BatchSnapshotStore
		if d.Infra.CacheClient != nil {
			snapshotStore = cache.NewSnapshotStore(d.Infra.CacheClient.Client())
		}

		d.Workers.RelayProcessor = outbox.NewProcessor(
			d.Apps.Relay,
			outbox.Config{
				Outbox:        d.cfg.Outbox,
				Relay:         d.cfg.Relay,
				Breaker:       d.cfg.CircuitBreaker,
				BaseMs:        d.cfg.Backoff.BaseDelay.Milliseconds(),
				CapMs:         d.cfg.Backoff.MaxDelay.Milliseconds(),
				ReplicaID:     replicaID(),
				SnapshotStore: snapshotStore,
			},
			d.Infra.Metrics,
			d.logger,
		)

		cleanupTick, err := outbox.NewCleanupTick(
			d.Apps.Relay,
			d.cfg.Cleanup,
			d.Infra.Metrics,
			d.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize cleanup tick: %w", err)
		}
		d.Workers.CleanupTick = cleanupTick

		return nil
	}
}
