package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
)

func TestScheduler_Register(t *testing.T) {
	s := New(config.SchedulerConfig{}, zap.NewNop())

	t.Run("rejects job without name", func(t *testing.T) {
		err := s.Register(Job{Run: func(context.Context) error { return nil }, Interval: time.Second})
		require.Error(t, err)
	})

	t.Run("rejects job without run function", func(t *testing.T) {
		err := s.Register(Job{Name: "noop", Interval: time.Second})
		require.Error(t, err)
	})

	t.Run("rejects job with both interval and daily", func(t *testing.T) {
		err := s.Register(Job{
			Name:     "both",
			Run:      func(context.Context) error { return nil },
			Interval: time.Second,
			Daily:    true,
		})
		require.Error(t, err)
	})

	t.Run("rejects job with neither interval nor daily", func(t *testing.T) {
		err := s.Register(Job{Name: "neither", Run: func(context.Context) error { return nil }})
		require.Error(t, err)
	})

	t.Run("accepts interval job", func(t *testing.T) {
		err := s.Register(Job{
			Name:     "auto-confirm",
			Run:      func(context.Context) error { return nil },
			Interval: 10 * time.Minute,
		})
		require.NoError(t, err)
	})

	t.Run("accepts daily job", func(t *testing.T) {
		err := s.Register(Job{
			Name:  "daily-report",
			Run:   func(context.Context) error { return nil },
			Daily: true,
			Hour:  6,
		})
		require.NoError(t, err)
	})
}

func TestScheduler_IntervalJobRuns(t *testing.T) {
	s := New(config.SchedulerConfig{JobTimeout: time.Second}, zap.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.Register(Job{
		Name: "counter",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
		Interval: 20 * time.Millisecond,
	}))

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_FailingJobKeepsRunning(t *testing.T) {
	s := New(config.SchedulerConfig{JobTimeout: time.Second}, zap.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.Register(Job{
		Name: "flaky",
		Run: func(context.Context) error {
			runs.Add(1)
			return errors.New("transient failure")
		},
		Interval: 20 * time.Millisecond,
	}))

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_IntervalJobRunsImmediately(t *testing.T) {
	s := New(config.SchedulerConfig{JobTimeout: time.Second}, zap.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.Register(Job{
		Name: "immediate",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
		Interval: time.Hour,
	}))

	require.NoError(t, s.Start(context.Background()))

	// The first run must not wait for a full interval.
	assert.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_PanickingJobKeepsRunning(t *testing.T) {
	s := New(config.SchedulerConfig{JobTimeout: time.Second}, zap.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.Register(Job{
		Name: "explosive",
		Run: func(context.Context) error {
			runs.Add(1)
			panic("boom")
		},
		Interval: 20 * time.Millisecond,
	}))

	require.NoError(t, s.Start(context.Background()))

	// The panic is contained per run; the loop keeps firing.
	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := New(config.SchedulerConfig{}, zap.NewNop())
	require.NoError(t, s.Register(Job{
		Name:     "noop",
		Run:      func(context.Context) error { return nil },
		Interval: time.Hour,
	}))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestUntilNext(t *testing.T) {
	now := time.Date(2024, 3, 10, 5, 30, 0, 0, time.UTC)

	t.Run("later today", func(t *testing.T) {
		assert.Equal(t, 30*time.Minute, untilNext(now, 6, 0))
	})

	t.Run("already passed rolls to tomorrow", func(t *testing.T) {
		assert.Equal(t, 23*time.Hour+30*time.Minute, untilNext(now, 5, 0))
	})

	t.Run("exact time rolls to tomorrow", func(t *testing.T) {
		assert.Equal(t, 24*time.Hour, untilNext(now, 5, 30))
	})
}
