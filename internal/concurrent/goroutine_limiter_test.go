package concurrent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutineLimiter_BoundsInFlightGoroutines(t *testing.T) {
	const limit = 2
	limiter := NewGoroutineLimiter(limit)

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		require.NoError(t, limiter.Go(context.Background(), func() {
			defer wg.Done()
			current := inFlight.Add(1)
			defer inFlight.Add(-1)

			// remember the highest concurrency level ever observed
			for {
				seen := peak.Load()
				if current <= seen || peak.CompareAndSwap(seen, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Positive(t, peak.Load())
}

func TestGoroutineLimiter_SerialLimitKeepsSubmissionOrder(t *testing.T) {
	limiter := NewGoroutineLimiter(1)

	var wg sync.WaitGroup
	order := make(chan int, 5)
	wg.Add(5)
	for i := 0; i < 5; i++ {
		// Go blocks until the previous fn released its slot, so the fns run
		// one by one in the order they were submitted
		require.NoError(t, limiter.Go(context.Background(), func() {
			defer wg.Done()
			order <- i
		}))
	}
	wg.Wait()
	close(order)

	var got []int
	for idx := range order {
		got = append(got, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestGoroutineLimiter_GoHonorsContext(t *testing.T) {
	limiter := NewGoroutineLimiter(1)

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, limiter.Go(context.Background(), func() {
		defer wg.Done()
		<-release
	}))

	// the slot is taken, so a submission with an expiring context gives up
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := limiter.Go(ctx, func() {
		t.Error("fn must not run when the slot was never acquired")
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	wg.Wait()
}
