package idgen_test

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/idgen"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
)

func testLogger() infrastructure.Logger {
	return infrastructure.NewLogger(config.AppConfig{ServiceName: "outboxrelay-test"}, config.LoggingConfig{Level: "error"})
}

func TestGenerator_Generate_Monotonic(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	gen, err := idgen.New(fake, testLogger(), idgen.WithWorkerID(7))
	require.NoError(t, err)

	var prev uint64
	for i := 0; i < 10_000; i++ {
		id, genErr := gen.Generate()
		require.NoError(t, genErr)

		val, parseErr := strconv.ParseUint(id.String(), 10, 64)
		require.NoError(t, parseErr)

		assert.Greater(t, val, prev)
		prev = val

		// A frozen clock would exhaust the 4096-id sequence of one
		// millisecond, and Generate waits for the clock to move on.
		if i%1000 == 999 {
			fake.Advance(time.Millisecond)
		}
	}
}

func TestGenerator_Generate_UniqueUnderConcurrency(t *testing.T) {
	// The system clock advances, so drawing more than 4096 ids (one
	// millisecond's sequence) does not leave Generate waiting forever.
	gen, err := idgen.New(clock.System{}, testLogger(), idgen.WithWorkerID(3))
	require.NoError(t, err)

	const n = 5000
	ids := make(chan domain.EventID, n)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/10; j++ {
				id, genErr := gen.Generate()
				require.NoError(t, genErr)
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.EventID]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id generated: %s", id)
		seen[id] = struct{}{}
	}
}

func TestGenerator_Generate_ClockRegressionWithinToleranceAbsorbed(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC))
	gen, err := idgen.New(fake, testLogger(), idgen.WithWorkerID(1))
	require.NoError(t, err)

	_, err = gen.Generate()
	require.NoError(t, err)

	fake.Set(time.Date(2024, 6, 1, 0, 0, 0, 950_000_000, time.UTC))

	go func() {
		time.Sleep(5 * time.Millisecond)
		fake.Set(time.Date(2024, 6, 1, 0, 0, 1, 1_000_000, time.UTC))
	}()

	_, err = gen.Generate()
	assert.NoError(t, err)
}

func TestGenerator_Generate_ClockRegressionBeyondToleranceFails(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC))
	gen, err := idgen.New(fake, testLogger(), idgen.WithWorkerID(1))
	require.NoError(t, err)

	_, err = gen.Generate()
	require.NoError(t, err)

	fake.Set(time.Date(2024, 6, 1, 0, 0, 0, 500_000_000, time.UTC))

	_, err = gen.Generate()
	require.Error(t, err)

	var clockErr *domain.ClockMovedBackwardsError
	require.ErrorAs(t, err, &clockErr)
}

func TestGenerator_WithWorkerID_MasksToValidRange(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	gen, err := idgen.New(fake, testLogger(), idgen.WithWorkerID(1<<20))
	require.NoError(t, err)

	id, err := gen.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, id.String())

	val, err := strconv.ParseUint(id.String(), 10, 64)
	require.NoError(t, err)
	// 1<<20 masked to the 10 worker-id bits is 0.
	assert.Equal(t, uint64(0), (val>>12)&1023)
}
