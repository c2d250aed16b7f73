package concurrent

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LimitedGoroutineRunner runs at most a fixed number of goroutines at a time.
//
// Go acquires a slot before spawning, so with a limit of one it degrades to
// strictly serial execution in submission order. Wave appliers rely on that:
// the same submission order always produces the same apply order
type LimitedGoroutineRunner struct {
	sem *semaphore.Weighted
}

func NewGoroutineLimiter(limit int64) *LimitedGoroutineRunner {
	return &LimitedGoroutineRunner{
		sem: semaphore.NewWeighted(limit),
	}
}

// Go runs fn on a new goroutine once a slot frees up. It blocks until the
// slot is acquired or ctx is done; the ctx error is returned in the latter
// case and fn never runs
func (l *LimitedGoroutineRunner) Go(ctx context.Context, fn func()) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	go func() {
		defer l.sem.Release(1)
		fn()
	}()

	return nil
}
