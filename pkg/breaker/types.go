package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrOpen is returned without invoking the guarded call while the circuit is open.
	ErrOpen = gobreaker.ErrOpenState
	// ErrTooManyRequests is returned when the half-open trial quota is exhausted.
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
	// ErrTimeout is returned when the guarded call exceeds Config.CallTimeout.
	ErrTimeout = errors.New("breaker: call timed out")
)

// State is the breaker mode as exposed to operators.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
	StateUnknown  State = "UNKNOWN"
)

// Config holds circuit breaker configuration.
type Config struct {
	// CallTimeout bounds each guarded call. Zero disables the bound.
	CallTimeout time.Duration
	// FailureThreshold is the failure percentage (0-100) that must be exceeded to trip.
	FailureThreshold uint32
	// ResetTimeout is the open period before the breaker admits trial calls.
	ResetTimeout time.Duration
	// RollingWindow clears closed-state counts periodically. Zero keeps them until a state change.
	RollingWindow time.Duration
	// VolumeThreshold is the minimum number of calls in the window before tripping.
	VolumeThreshold uint32
	// HalfOpenMaxRequests is the number of trial calls admitted while half-open.
	HalfOpenMaxRequests uint32
}

// DefaultConfig returns the settings used for the insurance API.
func DefaultConfig() Config {
	return Config{
		CallTimeout:         5 * time.Second,
		FailureThreshold:    50,
		ResetTimeout:        30 * time.Second,
		RollingWindow:       10 * time.Second,
		VolumeThreshold:     1,
		HalfOpenMaxRequests: 1,
	}
}

// Counts are the rolling statistics of the current generation plus lifetime
// rejection and timeout totals.
type Counts struct {
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"totalSuccesses"`
	TotalFailures        uint32 `json:"totalFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
	Rejections           uint64 `json:"rejections"`
	Timeouts             uint64 `json:"timeouts"`
}

// Snapshot is a read-only copy of the breaker state and counters.
type Snapshot struct {
	Name         string     `json:"name"`
	State        State      `json:"state"`
	Counts       Counts     `json:"stats"`
	LastOpenedAt *time.Time `json:"lastOpenedAt,omitempty"`
}

// Listener receives state transitions. Notifications are delivered
// asynchronously and must not assume ordering across transitions.
type Listener interface {
	OnStateChange(name string, from, to State)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(name string, from, to State)

func (f ListenerFunc) OnStateChange(name string, from, to State) { f(name, from, to) }

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
