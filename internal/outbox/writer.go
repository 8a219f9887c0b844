// Package outbox implements the caller-facing side of the transactional
// outbox pattern: serializing an envelope and inserting it as a PENDING
// row inside the caller's own database transaction. The relay loop that
// later drains these rows lives in internal/adapters/outbox.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
	"github.com/architeacher/outboxrelay/internal/outbox/expr"
)

// Phase marks where in a surrounding AOP-style interceptor the write is
// being attempted; it has no effect on Writer itself but is threaded
// through so a caller's own interceptor can decide whether to honor
// failOnError before or after the wrapped call runs.
type Phase string

const (
	PhaseBefore        Phase = "BEFORE"
	PhaseAfterReturning Phase = "AFTER_RETURNING"
	PhaseAfter          Phase = "AFTER"
)

// WriteOptions configures a single WriteOutbox call.
type WriteOptions struct {
	EventType     string
	Severity      domain.Severity
	AggregateType string

	// AggregateID is used directly when set; otherwise AggregateIDExpr is
	// evaluated against Call to derive it.
	AggregateID     string
	AggregateIDExpr *expr.Expr
	Call            expr.Call
	ParamNames      map[string]int

	Phase       Phase
	FailOnError bool
}

// Serializer turns a validated envelope into the bytes stored in the
// row's payload column. The default JSON-encodes the whole envelope;
// callers needing PII masking or a different wire shape provide their
// own (e.g. composed with an envelope.Transformer upstream).
type Serializer interface {
	Serialize(env *domain.Envelope) ([]byte, error)
}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(env *domain.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Repository is the subset of ports.OutboxRepository the Writer needs.
type Repository interface {
	SaveInTx(ctx context.Context, tx *sqlx.Tx, row *domain.OutboxRow) error
}

// Writer assembles, validates, serializes, and persists outbox rows
// inside a caller-supplied transaction. It never talks to the broker.
type Writer struct {
	factory    *envelope.Factory
	validator  envelope.Validator
	repo       Repository
	serializer Serializer
}

// Option configures a Writer at construction time.
type Option func(*Writer)

// WithSerializer overrides the default JSON envelope serializer.
func WithSerializer(s Serializer) Option {
	return func(w *Writer) { w.serializer = s }
}

func NewWriter(factory *envelope.Factory, validator envelope.Validator, repo Repository, opts ...Option) *Writer {
	w := &Writer{
		factory:    factory,
		validator:  validator,
		repo:       repo,
		serializer: jsonSerializer{},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteOutbox assembles an envelope for payload, validates it, and
// inserts a PENDING row inside tx. If opts.FailOnError is true (the
// normal case), any failure is returned to the caller so the
// surrounding transaction aborts; if false, WriteOutbox swallows the
// failure itself and returns nil, and no row is saved for the event —
// used only by interceptors that explicitly opt into best-effort mode.
func (w *Writer) WriteOutbox(ctx context.Context, tx *sqlx.Tx, payload any, opts WriteOptions) error {
	aggregateID, err := w.resolveAggregateID(opts)
	if err != nil {
		wrapped := fmt.Errorf("resolve aggregate id: %w", err)
		if !opts.FailOnError {
			return nil
		}

		return wrapped
	}

	env, err := w.factory.New(ctx, opts.EventType, opts.Severity, payload)
	if err != nil {
		if !opts.FailOnError {
			return nil
		}

		return fmt.Errorf("assemble envelope: %w", err)
	}

	if err := w.validator.Validate(env); err != nil {
		if !opts.FailOnError {
			return nil
		}

		return err
	}

	body, err := w.serializer.Serialize(env)
	if err != nil {
		if !opts.FailOnError {
			return nil
		}

		return fmt.Errorf("serialize envelope: %w", err)
	}

	row := domain.NewOutboxRow(env.EventID, opts.AggregateType, aggregateID, opts.EventType, body, env.OccurredAt)

	if err := w.repo.SaveInTx(ctx, tx, row); err != nil {
		if !opts.FailOnError {
			return nil
		}

		return err
	}

	return nil
}

func (w *Writer) resolveAggregateID(opts WriteOptions) (string, error) {
	if opts.AggregateID != "" {
		return opts.AggregateID, nil
	}

	if opts.AggregateIDExpr == nil {
		return "", fmt.Errorf("aggregate id is required: neither AggregateID nor AggregateIDExpr was set")
	}

	return opts.AggregateIDExpr.Eval(opts.Call, opts.ParamNames)
}
