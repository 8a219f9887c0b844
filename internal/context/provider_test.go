package context_test

import (
	stdcontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outboxcontext "github.com/architeacher/outboxrelay/internal/context"
	"github.com/architeacher/outboxrelay/internal/domain"
)

type samplePayload struct {
	ID string
}

func TestProvider_CurrentMetadata_DefaultsWhenCtxEmpty(t *testing.T) {
	provider := outboxcontext.NewProvider(domain.Source{Service: "outbox-relay"})

	meta := provider.CurrentMetadata(stdcontext.Background(), samplePayload{ID: "1"})

	assert.Equal(t, "outbox-relay", meta.Source.Service)
	assert.Equal(t, "unknown", meta.Trace.TraceID)
	assert.Equal(t, "unknown", meta.Trace.SpanID)
	assert.Equal(t, "samplePayload", meta.Schema.Name)
	assert.Equal(t, 1, meta.Schema.Version)
	assert.NotNil(t, meta.Tags)
}

func TestProvider_CurrentMetadata_PicksUpContextValues(t *testing.T) {
	provider := outboxcontext.NewProvider(domain.Source{Service: "outbox-relay"})
	provider.RegisterSchemaVersion(samplePayload{}, 3)

	ctx := stdcontext.Background()
	ctx = outboxcontext.WithCorrelation(ctx, "corr-1")
	ctx = outboxcontext.WithActor(ctx, domain.Actor{ID: "user-1", Role: "admin"})
	ctx = outboxcontext.WithTrace(ctx, domain.Trace{TraceID: "trace-1", SpanID: "span-1"})
	ctx = outboxcontext.WithTags(ctx, map[string]string{"region": "eu"})

	meta := provider.CurrentMetadata(ctx, samplePayload{ID: "1"})

	assert.Equal(t, "corr-1", meta.Source.CorrelationID)
	assert.Equal(t, "user-1", meta.Actor.ID)
	assert.Equal(t, "trace-1", meta.Trace.TraceID)
	assert.Equal(t, 3, meta.Schema.Version)
	assert.Equal(t, "eu", meta.Tags["region"])
}

func TestProvider_CurrentMetadata_TagsAreDefensivelyCopied(t *testing.T) {
	provider := outboxcontext.NewProvider(domain.Source{Service: "outbox-relay"})

	original := map[string]string{"region": "eu"}
	ctx := outboxcontext.WithTags(stdcontext.Background(), original)

	meta := provider.CurrentMetadata(ctx, samplePayload{})
	meta.Tags["region"] = "mutated"

	assert.Equal(t, "eu", original["region"])
}

func TestTaskDecorator_RestoresCorrelationAndTrace(t *testing.T) {
	ctx := stdcontext.Background()
	ctx = outboxcontext.WithCorrelation(ctx, "corr-2")
	ctx = outboxcontext.WithTrace(ctx, domain.Trace{TraceID: "trace-2", SpanID: "span-2"})

	decorator := outboxcontext.NewTaskDecorator(ctx)

	workerCtx := decorator.Restore(stdcontext.Background())

	corrID, ok := outboxcontext.Correlation(workerCtx)
	require.True(t, ok)
	assert.Equal(t, "corr-2", corrID)

	provider := outboxcontext.NewProvider(domain.Source{Service: "svc"})
	meta := provider.CurrentMetadata(workerCtx, samplePayload{})
	assert.Equal(t, "trace-2", meta.Trace.TraceID)
}
