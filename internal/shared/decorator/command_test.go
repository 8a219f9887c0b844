package decorator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/shared/decorator"
)

type fakeCommand struct{ Value int }

type fakeMetricsClient struct {
	calls map[string]int
}

func newFakeMetricsClient() *fakeMetricsClient {
	return &fakeMetricsClient{calls: make(map[string]int)}
}

func (f *fakeMetricsClient) Inc(key string, value int) {
	f.calls[key] += value
}

type fakeCommandHandler struct {
	result int
	err    error
}

func (h fakeCommandHandler) Handle(_ context.Context, cmd fakeCommand) (int, error) {
	if h.err != nil {
		return 0, h.err
	}

	return cmd.Value * 2, nil
}

func testLogger() infrastructure.Logger {
	return infrastructure.NewLogger(config.AppConfig{ServiceName: "decorator-test"}, config.LoggingConfig{Level: "error"})
}

func TestApplyCommandDecorators_Success(t *testing.T) {
	metrics := newFakeMetricsClient()
	handler := decorator.ApplyCommandDecorators[fakeCommand, int](
		fakeCommandHandler{result: 4},
		testLogger(),
		noop.NewTracerProvider(),
		metrics,
	)

	result, err := handler.Handle(context.Background(), fakeCommand{Value: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, result)

	var successSeen bool
	for key, count := range metrics.calls {
		if count > 0 && key != "" {
			successSeen = true
		}
	}
	assert.True(t, successSeen, "expected a metric to be recorded")
}

func TestApplyCommandDecorators_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	metrics := newFakeMetricsClient()
	handler := decorator.ApplyCommandDecorators[fakeCommand, int](
		fakeCommandHandler{err: wantErr},
		testLogger(),
		noop.NewTracerProvider(),
		metrics,
	)

	_, err := handler.Handle(context.Background(), fakeCommand{Value: 2})
	assert.ErrorIs(t, err, wantErr)
}
