// Package envelope builds and validates the domain.Envelope that wraps
// every outgoing event, and hosts the pluggable transformer pipeline
// applied to a payload before it is stamped and serialized.
package envelope

import (
	"context"
	"fmt"

	outboxcontext "github.com/architeacher/outboxrelay/internal/context"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
)

// IDGenerator mints the EventID stamped onto a new envelope.
type IDGenerator interface {
	Generate() (domain.EventID, error)
}

// Transformer mutates a payload before it is stamped into an envelope,
// e.g. to mask PII fields or rewrite field casing for a consumer. A
// Transformer may replace the payload outright by returning a new value.
type Transformer interface {
	Transform(ctx context.Context, payload any) (any, error)
}

// TransformerFunc adapts a plain function to Transformer.
type TransformerFunc func(ctx context.Context, payload any) (any, error)

func (f TransformerFunc) Transform(ctx context.Context, payload any) (any, error) {
	return f(ctx, payload)
}

// Factory constructs Envelopes: it stamps identity, timing, and
// metadata, then runs the payload through the transformer pipeline.
type Factory struct {
	idGenerator  IDGenerator
	clock        clock.Clock
	metadata     *outboxcontext.Provider
	transformers []Transformer
}

// Option configures a Factory at construction time.
type Option func(*Factory)

// WithTransformers appends transformers to the pipeline, run in order.
func WithTransformers(transformers ...Transformer) Option {
	return func(f *Factory) {
		f.transformers = append(f.transformers, transformers...)
	}
}

func NewFactory(idGenerator IDGenerator, clk clock.Clock, metadata *outboxcontext.Provider, opts ...Option) *Factory {
	f := &Factory{
		idGenerator: idGenerator,
		clock:       clk,
		metadata:    metadata,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// New builds an Envelope for the given event type and severity,
// running payload through every registered Transformer before it is
// stamped into the result.
func (f *Factory) New(ctx context.Context, eventType string, severity domain.Severity, payload any) (*domain.Envelope, error) {
	transformed := payload

	for _, t := range f.transformers {
		var err error

		transformed, err = t.Transform(ctx, transformed)
		if err != nil {
			return nil, fmt.Errorf("transform payload: %w", err)
		}
	}

	eventID, err := f.idGenerator.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	occurredAt := f.clock.Now()

	return &domain.Envelope{
		EventID:     eventID,
		EventType:   eventType,
		Severity:    severity,
		Metadata:    f.metadata.CurrentMetadata(ctx, transformed),
		Payload:     transformed,
		OccurredAt:  occurredAt,
		PublishedAt: occurredAt,
	}, nil
}
