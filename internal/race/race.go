// Package race bounds a blocking call with a hard deadline.
package race

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the deadline fires before the operation settles.
var ErrTimeout = errors.New("race: operation timed out")

type outcome[T any] struct {
	value T
	err   error
}

// Run starts op and returns whichever settles first: op's outcome, the
// deadline, or ctx being done. The race is single-shot. A losing op keeps
// running until it notices its context was cancelled; its late result goes
// into a buffered channel nobody reads, so the goroutine always exits and the
// caller never sees a second result. A non-positive timeout disables the
// deadline.
func Run[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	done := make(chan outcome[T], 1)

	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var zero T
	select {
	case res := <-done:
		cancel()
		return res.value, res.err
	case <-expired:
		cancel()
		return zero, ErrTimeout
	case <-ctx.Done():
		cancel()
		return zero, ctx.Err()
	}
}
