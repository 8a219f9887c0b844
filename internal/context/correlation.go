package context

import "context"

// WithCorrelation attaches a correlation id to ctx, overriding any
// value already present.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// Correlation reads the correlation id previously attached with
// WithCorrelation. ok is false when none was set.
func Correlation(ctx context.Context) (id string, ok bool) {
	id, ok = ctx.Value(correlationKey).(string)

	return id, ok && id != ""
}

// ClearCorrelation returns a context with no correlation id attached,
// useful when handing work to a goroutine that must start its own
// correlation scope rather than inherit the caller's.
func ClearCorrelation(ctx context.Context) context.Context {
	return context.WithValue(ctx, correlationKey, "")
}
