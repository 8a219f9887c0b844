// Package idgen mints monotonic, distributable event identifiers shaped
// like a Snowflake id: a millisecond timestamp, a worker id, and a
// per-millisecond sequence packed into a single 64-bit integer.
package idgen

import (
	"fmt"
	"net"
	"time"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
)

const (
	timestampBits = 42
	workerIDBits  = 10
	sequenceBits  = 12

	maxWorkerID = 1<<workerIDBits - 1 // 1023
	maxSequence = 1<<sequenceBits - 1 // 4095

	// clockDriftTolerance is the largest backwards clock jump the
	// generator will absorb by spin-waiting instead of failing.
	clockDriftTolerance = 100 * time.Millisecond
)

// epoch is subtracted from the wall-clock millisecond value before it is
// shifted into the high bits of the id, keeping ids compact for longer.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator mints monotonically increasing EventIDs. A single instance's
// internal counters are guarded by one mutex; callers from multiple
// goroutines share the same sequence space safely.
type Generator struct {
	clock         clock.Clock
	workerID      uint64
	workerIDIsSet bool

	mu         chan struct{} // 1-buffered channel used as a non-reentrant mutex
	lastMillis int64
	sequence   uint16
}

// Option configures a Generator at construction time.
type Option func(*Generator)

// WithWorkerID pins the generator to an explicit worker id in [0, 1023],
// including 0 — distinct from leaving it unset, which derives one from
// the host's MAC address instead.
func WithWorkerID(id int) Option {
	return func(g *Generator) {
		g.workerID = uint64(id) & maxWorkerID
		g.workerIDIsSet = true
	}
}

// New creates a Generator. Without WithWorkerID, the worker id is
// derived from the low 10 bits of the first non-loopback MAC address
// found on the host, and New logs a warning through logger, since this
// fallback gives no uniqueness guarantee across hosts sharing a MAC
// (e.g. behind NAT or in some virtualized environments).
func New(c clock.Clock, logger infrastructure.Logger, opts ...Option) (*Generator, error) {
	g := &Generator{
		clock: c,
		mu:    make(chan struct{}, 1),
	}
	g.mu <- struct{}{}

	for _, opt := range opts {
		opt(g)
	}

	if !g.workerIDIsSet {
		derived, err := deriveWorkerIDFromMAC()
		if err != nil {
			return nil, fmt.Errorf("derive worker id from MAC address: %w", err)
		}

		g.workerID = derived
		logger.Warn().
			Str("worker_id", fmt.Sprintf("%d", derived)).
			Msg("idgen: no explicit worker id configured, derived one from MAC address")
	}

	return g, nil
}

// Generate returns the next id for this worker. It blocks briefly only
// when the sequence for the current millisecond is exhausted, or when
// absorbing a clock regression of at most clockDriftTolerance.
func (g *Generator) Generate() (domain.EventID, error) {
	<-g.mu
	defer func() { g.mu <- struct{}{} }()

	now := g.currentMillis()

	if now < g.lastMillis {
		diff := time.Duration(g.lastMillis-now) * time.Millisecond
		if diff > clockDriftTolerance {
			return "", &domain.ClockMovedBackwardsError{
				Last: epoch.Add(time.Duration(g.lastMillis) * time.Millisecond),
				Curr: epoch.Add(time.Duration(now) * time.Millisecond),
				Diff: diff,
			}
		}

		now = g.spinUntilPast(g.lastMillis)
	}

	if now == g.lastMillis {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			now = g.spinUntilPast(g.lastMillis)
		}
	} else {
		g.sequence = 0
	}

	g.lastMillis = now

	id := uint64(now)<<(workerIDBits+sequenceBits) | g.workerID<<sequenceBits | uint64(g.sequence)

	return domain.EventID(fmt.Sprintf("%d", id)), nil
}

func (g *Generator) currentMillis() int64 {
	return g.clock.Now().Sub(epoch).Milliseconds()
}

// spinUntilPast busy-waits until the clock reports a millisecond value
// strictly greater than last. Used both for sequence exhaustion within a
// millisecond and for absorbing small backwards clock jumps.
func (g *Generator) spinUntilPast(last int64) int64 {
	for {
		now := g.currentMillis()
		if now > last {
			return now
		}
	}
}

func deriveWorkerIDFromMAC() (uint64, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("list network interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}

		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		mac := iface.HardwareAddr
		lastTwo := uint64(mac[len(mac)-2])<<8 | uint64(mac[len(mac)-1])

		return lastTwo & maxWorkerID, nil
	}

	return 0, fmt.Errorf("no non-loopback network interface with a MAC address found")
}
