// Package breaker guards calls to an unreliable dependency with a
// CLOSED/OPEN/HALF_OPEN circuit built on sony/gobreaker.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sony/gobreaker"
)

// Breaker is safe for concurrent use.
type Breaker struct {
	name   string
	cfg    Config
	cb     *gobreaker.CircuitBreaker
	logger *log.Helper

	mu           sync.RWMutex
	lastOpenedAt *time.Time
	rejections   uint64
	timeouts     uint64
	listeners    []Listener

	now func() time.Time
}

// New creates a breaker named name. Zero-valued fields of cfg fall back to DefaultConfig.
func New(name string, cfg Config, logger log.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxRequests == 0 {
		cfg.HalfOpenMaxRequests = def.HalfOpenMaxRequests
	}

	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: log.NewHelper(log.With(logger, "module", "breaker", "breaker", name)),
		now:    time.Now,
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Interval:    cfg.RollingWindow,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: b.readyToTrip,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			b.handleStateChange(from, to)
		},
	})

	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// readyToTrip is consulted by gobreaker after every failure in the closed state.
func (b *Breaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < b.cfg.VolumeThreshold {
		return false
	}
	return uint64(counts.TotalFailures)*100 > uint64(b.cfg.FailureThreshold)*uint64(counts.Requests)
}

// Execute runs fn through the circuit. While open it returns ErrOpen without
// calling fn. A call exceeding CallTimeout returns ErrTimeout and is recorded as
// a failure; fn keeps running in the background until it observes ctx.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.call(ctx, fn)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			b.mu.Lock()
			b.rejections++
			b.mu.Unlock()
			b.logger.Debugw("msg", "call rejected", "state", b.State(), "reason", err.Error())
		case errors.Is(err, ErrTimeout):
			b.mu.Lock()
			b.timeouts++
			b.mu.Unlock()
		}
		return nil, err
	}
	return res, nil
}

func (b *Breaker) call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if b.cfg.CallTimeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("breaker: guarded call panicked: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, b.cfg.CallTimeout)
		}
		return nil, callCtx.Err()
	}
}

// State returns the current mode.
func (b *Breaker) State() State {
	return convertState(b.cb.State())
}

// Stats returns the breaker's current state and counts. It never blocks on
// in-flight calls. State and counts are read separately, so a transition that
// lands between the two reads can pair the old state with the new generation's
// zeroed counts.
func (b *Breaker) Stats() Snapshot {
	state := b.cb.State()
	counts := b.cb.Counts()

	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		Name:  b.name,
		State: convertState(state),
		Counts: Counts{
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
			Rejections:           b.rejections,
			Timeouts:             b.timeouts,
		},
	}
	if b.lastOpenedAt != nil {
		t := *b.lastOpenedAt
		snap.LastOpenedAt = &t
	}
	return snap
}

// Subscribe registers a listener for state transitions.
func (b *Breaker) Subscribe(l Listener) {
	if l == nil {
		b.logger.Warn("attempted to register a nil state change listener")
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
}

// handleStateChange runs under gobreaker's lock, so listeners are notified
// on their own goroutines.
func (b *Breaker) handleStateChange(from, to gobreaker.State) {
	fromState, toState := convertState(from), convertState(to)

	b.mu.Lock()
	if to == gobreaker.StateOpen {
		t := b.now()
		b.lastOpenedAt = &t
	}
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	switch to {
	case gobreaker.StateOpen:
		b.logger.Warnw("msg", "circuit breaker opened, calls will fail fast",
			"from", fromState, "reset_timeout", b.cfg.ResetTimeout)
	case gobreaker.StateHalfOpen:
		b.logger.Infow("msg", "circuit breaker half-open, admitting trial calls", "from", fromState)
	case gobreaker.StateClosed:
		b.logger.Infow("msg", "circuit breaker closed", "from", fromState)
	}

	for _, l := range listeners {
		go func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Errorw("msg", "state change listener panicked", "panic", r)
				}
			}()
			l.OnStateChange(b.name, fromState, toState)
		}(l)
	}
}
