// Package breaker wraps gobreaker.CircuitBreaker with the relay's own
// failure-ratio trip configuration, gating broker sends the
// same way an outbound HTTP client would gate a flaky upstream.
package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
)

// Config tunes the failure-ratio trip condition and the cooldown
// before a HALF_OPEN probe is attempted.
type Config struct {
	Name string

	// Window is the minimum number of attempts, counted since the
	// breaker last changed state, before ReadyToTrip can fire (spec's W).
	// Counts are not cleared while the breaker stays CLOSED, so the ratio
	// covers every attempt since that state change, not only the most
	// recent Window attempts.
	Window uint32

	// Threshold is the failure ratio over those counted attempts that
	// trips the breaker OPEN (spec's Θ).
	Threshold float64

	// Cooldown is how long the breaker stays OPEN before allowing one
	// HALF_OPEN probe (spec's C_cool).
	Cooldown time.Duration
}

// CircuitBreaker gates broker sends: once OPEN, RelayLoop skips both
// the claim query and the broker call for the remainder of the
// cooldown window.
type CircuitBreaker struct {
	inner *gobreaker.CircuitBreaker
}

// New builds a CircuitBreaker. logger receives a structured entry on
// every state transition.
func New(cfg Config, logger infrastructure.Logger) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Window {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return failureRatio >= cfg.Threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &CircuitBreaker{inner: gobreaker.NewCircuitBreaker(settings)}
}

// Allow reports whether a tick may proceed to claim rows and send to
// the broker. When the breaker is OPEN, the tick must skip both steps
// entirely rather than hold row-locks unproductively.
func (b *CircuitBreaker) Allow() bool {
	return b.inner.State() != gobreaker.StateOpen
}

// Execute runs fn through the breaker, translating gobreaker's open-
// state sentinel into domain.ErrCircuitBreakerOpen.
func (b *CircuitBreaker) Execute(fn func() error) error {
	_, err := b.inner.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return domain.ErrCircuitBreakerOpen
	}

	return err
}

// State returns the breaker's current state name, for observability.
func (b *CircuitBreaker) State() string {
	return b.inner.State().String()
}
