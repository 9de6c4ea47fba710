package race

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRun_OperationWins(t *testing.T) {
	got, err := Run(context.Background(), time.Second, func(context.Context) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestRun_OperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), time.Second, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_TimeoutWins(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan string, 1)

	start := time.Now()
	got, err := Run(context.Background(), 20*time.Millisecond, func(context.Context) (string, error) {
		<-release
		finished <- "late"
		return "late", nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), time.Second)

	// The loser completes in the background and its result is discarded.
	close(release)
	select {
	case v := <-finished:
		assert.Equal(t, "late", v)
	case <-time.After(time.Second):
		t.Fatal("background operation never completed")
	}
	assert.Empty(t, got, "late result must not overwrite the returned value")
}

func TestRun_LoserContextIsCancelled(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := Run(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled after timeout")
	}
}

func TestRun_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := Run(ctx, time.Minute, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoTimeout(t *testing.T) {
	got, err := Run(context.Background(), 0, func(context.Context) (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestProperty_SingleSettlement(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		opDelay := time.Duration(rapid.IntRange(0, 3).Draw(rt, "opDelayMs")) * time.Millisecond
		var calls atomic.Int32

		got, err := Run(context.Background(), 200*time.Millisecond, func(context.Context) (int, error) {
			calls.Add(1)
			time.Sleep(opDelay)
			return 1, nil
		})
		require.NoError(rt, err)
		require.Equal(rt, 1, got)
		require.Equal(rt, int32(1), calls.Load())
	})
}
