package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/relay/breaker"
)

func testLogger() infrastructure.Logger {
	return infrastructure.NewLogger(config.AppConfig{ServiceName: "breaker-test"}, config.LoggingConfig{Level: "error"})
}

func TestCircuitBreaker_TripsAfterThresholdFailures(t *testing.T) {
	cb := breaker.New(breaker.Config{
		Name:      "test",
		Window:    4,
		Threshold: 0.5,
		Cooldown:  50 * time.Millisecond,
	}, testLogger())

	assert.True(t, cb.Allow())

	failing := errors.New("broker down")
	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return failing })
	}

	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_ExecuteReturnsOpenSentinelWhenTripped(t *testing.T) {
	cb := breaker.New(breaker.Config{
		Name:      "test",
		Window:    2,
		Threshold: 0.5,
		Cooldown:  time.Minute,
	}, testLogger())

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("down") })
	}

	err := cb.Execute(func() error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_RecoversAfterCooldownOnSuccessfulProbe(t *testing.T) {
	cb := breaker.New(breaker.Config{
		Name:      "test",
		Window:    2,
		Threshold: 0.5,
		Cooldown:  20 * time.Millisecond,
	}, testLogger())

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("down") })
	}
	assert.False(t, cb.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, cb.Allow())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.True(t, cb.Allow())
}
