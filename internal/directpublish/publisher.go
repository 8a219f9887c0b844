// Package directpublish implements the non-outbox fast path: callers
// that don't need transactional atomicity between their business
// change and the event publish assemble, validate, serialize, and send
// straight to the broker, with its own retry policy and a DLQ fallback
// on exhaustion.
package directpublish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
)

// BackoffStrategy computes the wait between attempts. DirectPublisher
// uses it by attempt count, not wall-clock elapsed time.
type BackoffStrategy interface {
	Backoff(attempt int) time.Duration
}

// Config controls retry count, send timeout, and broker destinations.
type Config struct {
	Topic       string
	DLQTopic    string
	MaxAttempts int
	SendTimeout time.Duration
}

// Publisher is the C9 DirectPublisher: a Publisher implementation that,
// like Writer, consumes the same Factory/Validator/BrokerClient but
// talks to the broker immediately instead of going through the outbox.
type Publisher struct {
	factory  *envelope.Factory
	validator envelope.Validator
	broker   ports.BrokerClient
	backoff  BackoffStrategy
	cfg      Config
	logger   infrastructure.Logger
	dlq      *DLQ
}

func NewPublisher(
	factory *envelope.Factory,
	validator envelope.Validator,
	broker ports.BrokerClient,
	backoffStrategy BackoffStrategy,
	cfg Config,
	logger infrastructure.Logger,
	dlq *DLQ,
) *Publisher {
	return &Publisher{
		factory:   factory,
		validator: validator,
		broker:    broker,
		backoff:   backoffStrategy,
		cfg:       cfg,
		logger:    logger,
		dlq:       dlq,
	}
}

// Publish assembles an envelope for payload and sends it to the
// broker, making at most cfg.MaxAttempts attempts in total. On exhaustion it routes
// a FailedEventRecord to the DLQ.
func (p *Publisher) Publish(ctx context.Context, eventType string, severity domain.Severity, payload any) error {
	env, err := p.factory.New(ctx, eventType, severity, payload)
	if err != nil {
		return fmt.Errorf("assemble envelope: %w", err)
	}

	if err := p.validator.Validate(env); err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("serialize envelope: %w", err)
	}

	var sendErr error

	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff.Backoff(attempt)):
			}
		}

		_, sendErr = p.broker.Send(ctx, p.cfg.Topic, string(env.EventID), body, p.cfg.SendTimeout)
		if sendErr == nil {
			return nil
		}

		p.logger.Warn().
			Str("event_id", env.EventID.String()).
			Int("attempt", attempt+1).
			Err(sendErr).
			Msg("direct publish attempt failed")
	}

	p.logger.Error().
		Str("event_id", env.EventID.String()).
		Err(sendErr).
		Msg("direct publish exhausted retries, routing to DLQ")

	return p.dlq.Send(ctx, FailedEventRecord{
		EventID:          env.EventID.String(),
		OriginalTopic:    p.cfg.Topic,
		OriginalPayload:  string(body),
		ExceptionType:    fmt.Sprintf("%T", sendErr),
		ExceptionMessage: sendErr.Error(),
		FailedAt:         time.Now().UTC().UnixMilli(),
	})
}
