package breaker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDownstream = errors.New("downstream error")

func newTestBreaker(cfg Config) *Breaker {
	return New("insurance", cfg, log.NewStdLogger(io.Discard))
}

func succeed(context.Context) (any, error) { return "ok", nil }
func fail(context.Context) (any, error)    { return nil, errDownstream }

func TestBreaker_InitialState(t *testing.T) {
	b := newTestBreaker(DefaultConfig())

	snap := b.Stats()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, "insurance", snap.Name)
	assert.Zero(t, snap.Counts.Requests)
	assert.Nil(t, snap.LastOpenedAt)
}

func TestBreaker_SuccessfulExecution(t *testing.T) {
	b := newTestBreaker(DefaultConfig())

	res, err := b.Execute(context.Background(), succeed)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)

	snap := b.Stats()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, uint32(1), snap.Counts.Requests)
	assert.Equal(t, uint32(1), snap.Counts.TotalSuccesses)
}

func TestBreaker_TripsAndFailsFast(t *testing.T) {
	b := newTestBreaker(DefaultConfig())

	_, err := b.Execute(context.Background(), fail)
	require.ErrorIs(t, err, errDownstream)
	assert.Equal(t, StateOpen, b.State())

	var called atomic.Bool
	start := time.Now()
	_, err = b.Execute(context.Background(), func(context.Context) (any, error) {
		called.Store(true)
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called.Load(), "guarded call must not run while open")
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	snap := b.Stats()
	assert.Equal(t, uint64(1), snap.Counts.Rejections)
	require.NotNil(t, snap.LastOpenedAt)
}

func TestBreaker_ThresholdMustBeExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VolumeThreshold = 2
	b := newTestBreaker(cfg)

	_, err := b.Execute(context.Background(), succeed)
	require.NoError(t, err)
	// one failure of two requests is exactly 50%, which does not exceed the threshold
	_, err = b.Execute(context.Background(), fail)
	require.Error(t, err)
	assert.Equal(t, StateClosed, b.State())

	// two of three exceeds it
	_, _ = b.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_VolumeThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VolumeThreshold = 3
	b := newTestBreaker(cfg)

	_, _ = b.Execute(context.Background(), fail)
	_, _ = b.Execute(context.Background(), fail)
	assert.Equal(t, StateClosed, b.State(), "below the volume threshold the breaker stays closed")

	_, _ = b.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResetTimeout = 50 * time.Millisecond
	b := newTestBreaker(cfg)

	_, _ = b.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())

	require.Eventually(t, func() bool {
		return b.State() == StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	_, err := b.Execute(context.Background(), succeed)
	require.NoError(t, err)

	snap := b.Stats()
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.Counts.TotalFailures, "counts reset on close")
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResetTimeout = 50 * time.Millisecond
	b := newTestBreaker(cfg)

	_, _ = b.Execute(context.Background(), fail)
	first := b.Stats().LastOpenedAt
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		return b.State() == StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	_, err := b.Execute(context.Background(), fail)
	require.ErrorIs(t, err, errDownstream)

	snap := b.Stats()
	assert.Equal(t, StateOpen, snap.State)
	require.NotNil(t, snap.LastOpenedAt)
	assert.True(t, snap.LastOpenedAt.After(*first), "reset timer restarts on reopen")
}

func TestBreaker_HalfOpenAdmitsLimitedTrials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResetTimeout = 50 * time.Millisecond
	cfg.CallTimeout = 0
	b := newTestBreaker(cfg)

	_, _ = b.Execute(context.Background(), fail)
	require.Eventually(t, func() bool {
		return b.State() == StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = b.Execute(context.Background(), func(context.Context) (any, error) {
			close(started)
			<-release
			return "ok", nil
		})
	}()
	<-started

	_, err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrTooManyRequests)
	close(release)

	require.Eventually(t, func() bool {
		return b.State() == StateClosed
	}, time.Second, 10*time.Millisecond)
}

func TestBreaker_TimeoutCountsAsFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	b := newTestBreaker(cfg)

	_, err := b.Execute(context.Background(), func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)

	snap := b.Stats()
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, uint64(1), snap.Counts.Timeouts)
}

func TestBreaker_PanicIsFailure(t *testing.T) {
	b := newTestBreaker(DefaultConfig())

	_, err := b.Execute(context.Background(), func(context.Context) (any, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_StatsIsStable(t *testing.T) {
	b := newTestBreaker(DefaultConfig())
	_, _ = b.Execute(context.Background(), succeed)

	snap := b.Stats()
	assert.Equal(t, snap, b.Stats())
	assert.Equal(t, "insurance", snap.Name)
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, uint32(1), snap.Counts.Requests)
	assert.Equal(t, uint32(1), snap.Counts.TotalSuccesses)
	assert.Nil(t, snap.LastOpenedAt)
}

func TestBreaker_ListenerNotified(t *testing.T) {
	b := newTestBreaker(DefaultConfig())

	type transition struct{ from, to State }
	got := make(chan transition, 4)
	b.Subscribe(ListenerFunc(func(name string, from, to State) {
		assert.Equal(t, "insurance", name)
		got <- transition{from, to}
	}))
	b.Subscribe(ListenerFunc(func(string, State, State) {
		panic("listener failure must not affect the breaker")
	}))
	b.Subscribe(nil)

	_, _ = b.Execute(context.Background(), fail)

	select {
	case tr := <-got:
		assert.Equal(t, StateClosed, tr.from)
		assert.Equal(t, StateOpen, tr.to)
	case <-time.After(time.Second):
		t.Fatal("listener was not notified")
	}
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VolumeThreshold = 1000
	b := newTestBreaker(cfg)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			if i%2 == 0 {
				_, _ = b.Execute(context.Background(), succeed)
			} else {
				_ = b.Stats()
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	assert.Equal(t, uint32(10), b.Stats().Counts.Requests)
}
