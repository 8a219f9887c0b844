// Package broker adapts pkg/queue's RabbitMQ wrapper to the relay's
// ports.BrokerClient contract.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/pkg/queue"
)

// RabbitMQClient implements ports.BrokerClient over pkg/queue.Queue. The
// outbox/direct-publish "topic" maps onto an AMQP exchange; "key" maps
// onto the routing key, which RabbitMQ uses for partition-equivalent
// routing when the exchange is a consistent-hash exchange.
type RabbitMQClient struct {
	q queue.Queue
}

func NewRabbitMQClient(q queue.Queue) *RabbitMQClient {
	return &RabbitMQClient{q: q}
}

// Send publishes value to topic with routing key key. timeout sets the
// deadline of a context derived for the call, but pkg/queue's channel
// publish takes no context, so the deadline does not interrupt a
// publish in progress. A failed publish is reported as a TimeoutError
// when that deadline has already passed, and as a retryable BrokerError
// otherwise. Send returns once PublishWithOptions has returned; the
// channel is not put in confirm mode, so that return does not wait
// for a broker acknowledgement.
func (c *RabbitMQClient) Send(ctx context.Context, topic, key string, value []byte, timeout time.Duration) (ports.Ack, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.q.PublishWithOptions(ctx, topic, key, value, queue.WithPublishingTimeout(timeout))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ports.Ack{}, &domain.TimeoutError{Operation: "broker.send", Timeout: timeout}
		}

		return ports.Ack{}, &domain.BrokerError{Retryable: true, Cause: err}
	}

	return ports.Ack{Topic: topic}, nil
}
