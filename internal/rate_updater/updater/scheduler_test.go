package updater_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/langowen/ratepresence/internal/rate_updater/updater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	s := updater.NewScheduler(10*time.Millisecond, func(context.Context) {
		if calls.Add(1) == 3 {
			cancel()
		}
	})

	err := s.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestScheduler_NeverOverlapsRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running, maxRunning, calls atomic.Int32
	s := updater.NewScheduler(time.Millisecond, func(context.Context) {
		n := running.Add(1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)

		if calls.Add(1) == 5 {
			cancel()
		}
	})

	_ = s.Run(ctx)

	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := updater.NewScheduler(0, func(context.Context) {
		t.Fatal("job must not run")
	})

	assert.Error(t, s.Run(context.Background()))
}
