package batch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/architeacher/outboxrelay/internal/relay/batch"
)

func TestController_New_ClampsInitialWithinBounds(t *testing.T) {
	c := batch.New(batch.Config{Min: 10, Max: 500, Initial: 5000})
	assert.Equal(t, 500, c.Size())

	c = batch.New(batch.Config{Min: 10, Max: 500, Initial: 1})
	assert.Equal(t, 10, c.Size())
}

func TestController_RecordFullSuccess_GrowsByLargerOfPercentOrTen(t *testing.T) {
	c := batch.New(batch.Config{Min: 10, Max: 500, Initial: 100})
	c.RecordFullSuccess()
	assert.Equal(t, 125, c.Size())

	c2 := batch.New(batch.Config{Min: 10, Max: 500, Initial: 20})
	c2.RecordFullSuccess()
	assert.Equal(t, 30, c2.Size())
}

func TestController_RecordFullSuccess_CapsAtMax(t *testing.T) {
	c := batch.New(batch.Config{Min: 10, Max: 500, Initial: 480})
	c.RecordFullSuccess()
	assert.Equal(t, 500, c.Size())
}

func TestController_RecordFailure_HalvesAndFloorsAtMin(t *testing.T) {
	c := batch.New(batch.Config{Min: 10, Max: 500, Initial: 100})
	c.RecordFailure()
	assert.Equal(t, 50, c.Size())

	c2 := batch.New(batch.Config{Min: 10, Max: 500, Initial: 15})
	c2.RecordFailure()
	assert.Equal(t, 10, c2.Size())
}

func TestController_RecordIdle_WidensOnlyAfterThreeConsecutiveTicks(t *testing.T) {
	c := batch.New(batch.Config{Min: 10, Max: 500, Initial: 100})

	c.RecordIdle()
	assert.Equal(t, 100, c.Size())
	c.RecordIdle()
	assert.Equal(t, 100, c.Size())
	c.RecordIdle()
	assert.Equal(t, 110, c.Size())
}

func TestController_RecordFailure_ResetsIdleRun(t *testing.T) {
	c := batch.New(batch.Config{Min: 10, Max: 500, Initial: 100})

	c.RecordIdle()
	c.RecordIdle()
	c.RecordFailure()
	c.RecordIdle()
	assert.Equal(t, 50, c.Size())
}
