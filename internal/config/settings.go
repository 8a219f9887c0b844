package config

import (
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
	APIVersion     string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

type (
	ServiceConfig struct {
		AppConfig      AppConfig           `json:"app_config"`
		Logging        LoggingConfig       `json:"logging"`
		Telemetry      Telemetry           `json:"telemetry"`
		SecretStorage  SecretStorageConfig `json:"secret_storage"`
		Storage        StorageConfig       `json:"storage"`
		Cache          CacheConfig         `json:"cache"`
		Queue          QueueConfig         `json:"queue"`
		Outbox         OutboxConfig        `json:"outbox"`
		IDGenerator    IDGeneratorConfig   `json:"id_generator"`
		Relay          RelayConfig         `json:"relay"`
		CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
		Backoff        BackoffConfig       `json:"backoff"`
		DirectPublish  DirectPublishConfig `json:"direct_publish"`
		Cleanup        CleanupConfig       `json:"cleanup"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"outboxrelay" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		APIVersion     string `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"unknown" json:"env"`
	}

	LoggingConfig struct {
		Level  string `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format string `envconfig:"LOGGING_FORMAT" default:"json" json:"format"`
	}

	Telemetry struct {
		ExporterType string `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`

		OtelGRPCHost       string `envconfig:"OTEL_HOST" json:"otel_grpc_host"`
		OtelGRPCPort       string `envconfig:"OTEL_PORT" default:"4317" json:"otel_grpc_port"`
		OtelProductCluster string `envconfig:"OTEL_PRODUCT_CLUSTER" json:"otel_product_cluster"`

		Metrics Metrics `json:"metrics"`
		Traces  Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
		Port    int  `envconfig:"METRICS_PORT" default:"9090" json:"port"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1" json:"sampler_ratio"`
	}

	SecretStorageConfig struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"true" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"bottom-Secret" json:"token,omitempty"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"secret_id,omitempty"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"outboxrelay" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    int           `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	StorageConfig struct {
		Host            string        `envconfig:"POSTGRES_HOST" default:"postgres" json:"host"`
		Port            int           `envconfig:"POSTGRES_PORT" default:"5432" json:"port"`
		Database        string        `envconfig:"POSTGRES_DATABASE" default:"outboxrelay" json:"database"`
		Username        string        `envconfig:"POSTGRES_USERNAME" default:"postgres" json:"username"`
		Password        string        `envconfig:"POSTGRES_PASSWORD" default:"" json:"password,omitempty"`
		SSLMode         string        `envconfig:"POSTGRES_SSL_MODE" default:"disable" json:"ssl_mode"`
		MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25" json:"max_open_conns"`
		MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5" json:"max_idle_conns"`
		ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m" json:"conn_max_lifetime"`
		ConnMaxIdleTime time.Duration `envconfig:"POSTGRES_CONN_MAX_IDLE_TIME" default:"5m" json:"conn_max_idle_time"`
		ConnectTimeout  time.Duration `envconfig:"POSTGRES_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		QueryTimeout    time.Duration `envconfig:"POSTGRES_QUERY_TIMEOUT" default:"30s" json:"query_timeout"`
	}

	// CacheConfig points at the Redis instance used to share batch-size
	// and circuit-breaker telemetry across relay replicas, and to back
	// the direct publisher's dedupe cache.
	CacheConfig struct {
		Address  string        `envconfig:"REDIS_ADDRESS" default:"redis:6379" json:"address"`
		Password string        `envconfig:"REDIS_PASSWORD" default:"" json:"password,omitempty"`
		DB       int           `envconfig:"REDIS_DB" default:"0" json:"db"`
		DialTimeout time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
	}

	QueueConfig struct {
		Host           string        `envconfig:"RABBITMQ_HOST" default:"rabbitmq" json:"host"`
		Port           int           `envconfig:"RABBITMQ_PORT" default:"5672" json:"port"`
		Username       string        `envconfig:"RABBITMQ_USERNAME" default:"admin" json:"username"`
		Password       string        `envconfig:"RABBITMQ_PASSWORD" default:"bottom.Secret" json:"password,omitempty"`
		VirtualHost    string        `envconfig:"RABBITMQ_VIRTUAL_HOST" default:"/" json:"virtual_host"`
		ExchangeName   string        `envconfig:"RABBITMQ_EXCHANGE_NAME" default:"outbox-relay" json:"exchange_name"`
		RoutingKey     string        `envconfig:"RABBITMQ_ROUTING_KEY" default:"outbox.*" json:"routing_key"`
		QueueName      string        `envconfig:"RABBITMQ_NAME" default:"outbox_relay_queue" json:"queue_name"`
		ConnectTimeout time.Duration `envconfig:"RABBITMQ_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		Heartbeat      time.Duration `envconfig:"RABBITMQ_HEARTBEAT" default:"10s" json:"heartbeat"`
		PrefetchCount  int           `envconfig:"RABBITMQ_PREFETCH_COUNT" default:"10" json:"prefetch_count"`
		Durable        bool          `envconfig:"RABBITMQ_DURABLE" default:"true" json:"durable"`
		AutoDelete     bool          `envconfig:"RABBITMQ_AUTO_DELETE" default:"false" json:"auto_delete"`
	}

	// OutboxConfig governs the relay's publish target and per-row retry
	// budget before a row becomes terminally FAILED.
	OutboxConfig struct {
		Topic       string        `envconfig:"OUTBOX_TOPIC" default:"outbox.events" json:"topic"`
		MaxRetries  int           `envconfig:"OUTBOX_MAX_RETRIES" default:"8" json:"max_retries"`
		SendTimeout time.Duration `envconfig:"OUTBOX_SEND_TIMEOUT" default:"5s" json:"send_timeout"`
	}

	// IDGeneratorConfig configures the Snowflake-shaped id generator. A
	// WorkerID of -1 means "derive from the host's MAC address".
	IDGeneratorConfig struct {
		WorkerID int `envconfig:"ID_GENERATOR_WORKER_ID" default:"-1" json:"worker_id"`
	}

	// RelayConfig tunes the polling loop: tick cadence and adaptive batch
	// bounds. LeaseDuration is not read by the relay; the claim query
	// applies a fixed 30-second processing lease.
	RelayConfig struct {
		PollInterval  time.Duration `envconfig:"RELAY_POLL_INTERVAL" default:"1s" json:"poll_interval"`
		BatchSizeMin  int           `envconfig:"RELAY_BATCH_SIZE_MIN" default:"10" json:"batch_size_min"`
		BatchSizeMax  int           `envconfig:"RELAY_BATCH_SIZE_MAX" default:"500" json:"batch_size_max"`
		BatchSizeInit int           `envconfig:"RELAY_BATCH_SIZE_INIT" default:"50" json:"batch_size_init"`
		LeaseDuration time.Duration `envconfig:"RELAY_LEASE_DURATION" default:"30s" json:"lease_duration"`
	}

	CircuitBreakerConfig struct {
		Window    uint32        `envconfig:"CIRCUIT_BREAKER_WINDOW" default:"20" json:"window"`
		Threshold float64       `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"0.5" json:"threshold"`
		Cooldown  time.Duration `envconfig:"CIRCUIT_BREAKER_COOLDOWN" default:"30s" json:"cooldown"`
	}

	BackoffConfig struct {
		// BaseDelay is the amount of time to backoff after the first failure.
		BaseDelay time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		// Multiplier is the factor with which to multiply backoffs after a
		// failed retry. Should ideally be greater than 1.
		Multiplier float64 `envconfig:"BACKOFF_MULTIPLIER" default:"1.6" json:"multiplier"`
		// Jitter is the factor with which backoffs are randomized.
		Jitter float64 `envconfig:"BACKOFF_JITTER" default:"0.2" json:"jitter"`
		// MaxDelay is the upper bound of backoff delay.
		MaxDelay time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"5m" json:"max_delay"`
	}

	// DirectPublishConfig governs the synchronous fire-and-retry path used
	// by callers that publish outside the outbox, with DLQ fallback.
	DirectPublishConfig struct {
		Topic        string        `envconfig:"DIRECT_PUBLISH_TOPIC" default:"outbox.events" json:"topic"`
		DLQTopic     string        `envconfig:"DIRECT_PUBLISH_DLQ_TOPIC" default:"outbox.events.dlq" json:"dlq_topic"`
		MaxAttempts  int           `envconfig:"DIRECT_PUBLISH_MAX_ATTEMPTS" default:"3" json:"max_attempts"`
		SendTimeout  time.Duration `envconfig:"DIRECT_PUBLISH_SEND_TIMEOUT" default:"5s" json:"send_timeout"`
		DLQBackupDir string        `envconfig:"DIRECT_PUBLISH_DLQ_BACKUP_DIR" default:"/var/lib/outboxrelay/dlq" json:"dlq_backup_dir"`
	}

	// CleanupConfig governs the recurring purge of terminal PUBLISHED rows.
	// Schedule is a standard five-field cron expression; the default runs
	// once a day at 02:00.
	CleanupConfig struct {
		RetentionDays int    `envconfig:"CLEANUP_RETENTION_DAYS" default:"7" json:"retention_days"`
		Schedule      string `envconfig:"CLEANUP_SCHEDULE" default:"0 2 * * *" json:"schedule"`
	}
)
