package infrastructure

import (
	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/pkg/queue"
)

// Queue is an alias to the queue.Queue interface for backward compatibility
type Queue = queue.Queue

// NewQueue builds a RabbitMQ-backed Queue from configuration, wiring the
// application logger through so connection/consume events land in the same
// structured log stream as the rest of the relay.
func NewQueue(cfg config.QueueConfig, logger Logger) Queue {
	queueCfg := queue.Config{
		Scheme:   "amqp",
		Username: cfg.Username,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Vhost:    cfg.VirtualHost,
	}

	return queue.NewRabbitMQQueue(
		queueCfg,
		queue.WithLogger(queue.NewLoggerAdapter(logger)),
		queue.WithConnectionTimeout(cfg.ConnectTimeout),
	)
}
