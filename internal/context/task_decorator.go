package context

import (
	"context"

	"github.com/architeacher/outboxrelay/internal/domain"
)

// TaskDecorator captures the correlation id and trace present on ctx at
// submission time and restores that snapshot onto whatever context a
// worker goroutine runs with. This lets background workers preserve
// log/trace correlation across a goroutine hop without leaking the
// submitting goroutine's context wholesale.
type TaskDecorator struct {
	correlationID  string
	hasCorrelation bool
	trace          domain.Trace
	hasTrace       bool
}

// NewTaskDecorator snapshots ctx's correlation id and trace.
func NewTaskDecorator(ctx context.Context) *TaskDecorator {
	d := &TaskDecorator{}

	if id, ok := Correlation(ctx); ok {
		d.correlationID = id
		d.hasCorrelation = true
	}

	if trace, ok := ctx.Value(traceKey).(domain.Trace); ok {
		d.trace = trace
		d.hasTrace = true
	}

	return d
}

// Restore applies the snapshot onto ctx, returning a new context. The
// caller should run the task with the returned context and discard it
// on completion; it carries no cancellation of its own.
func (d *TaskDecorator) Restore(ctx context.Context) context.Context {
	if d.hasCorrelation {
		ctx = WithCorrelation(ctx, d.correlationID)
	}

	if d.hasTrace {
		ctx = WithTrace(ctx, d.trace)
	}

	return ctx
}
