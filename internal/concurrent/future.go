package concurrent

import "context"

// Future is the handle to a computation submitted through a GoroutineRunner.
// It carries exactly the function's result and error; composition stays at the
// call site
type (
	result[T any] struct {
		err error
		res T
	}

	GoroutineRunner interface {
		// Go runs fn, typically on its own goroutine. A non-nil error means
		// fn was never started
		Go(context.Context, func()) error
	}

	Future[T any] struct {
		// done is closed once res has been populated, so any number of
		// readers can wait on it
		done chan struct{}
		res  *result[T]
	}
)

type SynchronousGoroutineRunner struct{}

// NewSynchronousGoroutineRunner returns a runner that executes fn inline on
// the submitting goroutine
func NewSynchronousGoroutineRunner() GoroutineRunner {
	return &SynchronousGoroutineRunner{}
}

func (r *SynchronousGoroutineRunner) Go(_ context.Context, fn func()) error {
	fn()
	return nil
}

// SubmitFuture hands fn to the runner and returns the future that will carry
// its result. Whether and how long this blocks is the runner's business: a
// bounded runner holds the submission until a slot frees up
func SubmitFuture[T any](ctx context.Context, runner GoroutineRunner, fn func() (T, error)) (Future[T], error) {
	future := Future[T]{
		done: make(chan struct{}),
		res:  &result[T]{},
	}

	if err := runner.Go(ctx, func() {
		future.res.res, future.res.err = fn()
		close(future.done)
	}); err != nil {
		return Future[T]{}, err
	}

	return future, nil
}

// Get blocks until the result is ready or ctx expires. Any number of
// goroutines may call it, before or after completion
func (f Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zeroVal T
		return zeroVal, ctx.Err()
	case <-f.done:
		return f.res.res, f.res.err
	}
}

// GetAll collects the results in submission order, stopping at the first error
func GetAll[T any](ctx context.Context, futures ...Future[T]) ([]T, error) {
	vals := make([]T, len(futures))
	for i, future := range futures {
		val, err := future.Get(ctx)
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}
