package eodhd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SpacesSequentialCalls(t *testing.T) {
	delay := 30 * time.Millisecond
	l := NewRateLimiter(delay)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	// First call is immediate, the next two each wait one delay.
	assert.GreaterOrEqual(t, time.Since(start), 2*delay-5*time.Millisecond)
}

func TestRateLimiter_ConcurrentCallersAreSerialized(t *testing.T) {
	delay := 30 * time.Millisecond
	l := NewRateLimiter(delay)
	require.NoError(t, l.Acquire(context.Background()))

	start := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var finished []time.Duration
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			finished = append(finished, time.Since(start))
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, finished, 2)
	latest := finished[0]
	if finished[1] > latest {
		latest = finished[1]
	}
	// Two waiters after one prior call cannot both proceed after a single delay.
	assert.GreaterOrEqual(t, latest, 2*delay-5*time.Millisecond)
}

func TestRateLimiter_ZeroDelayNeverBlocks(t *testing.T) {
	l := NewRateLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	l := NewRateLimiter(time.Hour)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Acquire(ctx))
}
