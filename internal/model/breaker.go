package model

import "time"

// BreakerState is the last known state of a named circuit as mirrored to Redis.
// It survives restarts, unlike the in-process breaker.
type BreakerState struct {
	Name         string
	State        string
	ChangedAt    time.Time
	LastOpenedAt *time.Time
	TripCount    int64
}
