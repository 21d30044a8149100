package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, DefaultEpoch, clock.Now())
	assert.Equal(t, int64(1), clock.Readings())
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, DefaultEpoch, clock.Now())
	assert.Equal(t, DefaultEpoch.Add(time.Second), clock.Now())
	assert.Equal(t, DefaultEpoch.Add(2*time.Second), clock.Now())
}

func TestDeterministicClock_Frozen(t *testing.T) {
	clock := NewDeterministicClockAt(DefaultEpoch, 0)

	assert.Equal(t, clock.Now(), clock.Now())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, DefaultEpoch, clock.Now())
}

func TestDeterministicClock_SetBackwards(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Now()

	earlier := DefaultEpoch.Add(-time.Hour)
	clock.Set(earlier)

	assert.Equal(t, earlier, clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()

	const goroutines = 10
	const calls = 100

	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				ts := clock.Now()
				mu.Lock()
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*calls, "every reading must be distinct")
	assert.Equal(t, int64(goroutines*calls), clock.Readings())
}
