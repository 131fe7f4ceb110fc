package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MediConnect/internal/model"
	"MediConnect/pkg/breaker"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// circuitStateTTL keeps a stale mirror from outliving a long shutdown.
const circuitStateTTL = 24 * time.Hour

// CircuitStateRepo mirrors breaker transitions into Redis so operators can
// see the last known state and trip count across restarts.
//
// Keys:
//   - circuit:{name}           hash {state, changed_at, last_opened_at}
//   - circuit:{name}:trips     counter of CLOSED/HALF_OPEN -> OPEN transitions
type CircuitStateRepo struct {
	rdb     *redis.Client
	logger  *pkglog.LogHelper
	timeout time.Duration
}

// NewCircuitStateRepo creates a new breaker state repository.
// A nil client turns every method into a no-op.
func NewCircuitStateRepo(d *Data, logger log.Logger) *CircuitStateRepo {
	return &CircuitStateRepo{
		rdb:     d.GetRedisClient(),
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "data/circuit")),
		timeout: 2 * time.Second,
	}
}

// OnStateChange implements breaker.Listener. Redis failures are logged and
// otherwise ignored (degraded mode).
func (r *CircuitStateRepo) OnStateChange(name string, from, to breaker.State) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.Record(ctx, name, to, time.Now()); err != nil {
		r.logger.Warnw("msg", "failed to mirror circuit state (degraded mode)",
			"breaker", name, "from", from, "to", to, "error", err)
	}
}

// Record stores the new state of the named circuit.
func (r *CircuitStateRepo) Record(ctx context.Context, name string, state breaker.State, at time.Time) error {
	if r.rdb == nil {
		return nil
	}

	key := BuildCacheKey(CacheKeyCircuit, name)
	fields := map[string]interface{}{
		"state":      string(state),
		"changed_at": at.Unix(),
	}
	if state == breaker.StateOpen {
		fields["last_opened_at"] = at.Unix()
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, circuitStateTTL)
	if state == breaker.StateOpen {
		tripsKey := BuildCacheKey(CacheKeyCircuit, name, "trips")
		pipe.Incr(ctx, tripsKey)
		pipe.Expire(ctx, tripsKey, circuitStateTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record circuit state: %w", err)
	}

	r.logger.Redis("circuit state mirrored", "breaker", name, "state", state)
	return nil
}

// Get returns the mirrored state, or nil when nothing was recorded.
func (r *CircuitStateRepo) Get(ctx context.Context, name string) (*model.BreakerState, error) {
	if r.rdb == nil {
		return nil, nil
	}

	vals, err := r.rdb.HGetAll(ctx, BuildCacheKey(CacheKeyCircuit, name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get circuit state: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	state := &model.BreakerState{
		Name:  name,
		State: vals["state"],
	}
	if ts, err := parseUnix(vals["changed_at"]); err == nil {
		state.ChangedAt = ts
	}
	if ts, err := parseUnix(vals["last_opened_at"]); err == nil {
		state.LastOpenedAt = &ts
	}

	trips, err := r.rdb.Get(ctx, BuildCacheKey(CacheKeyCircuit, name, "trips")).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warnw("msg", "failed to read trip count (degraded mode: default to 0)", "breaker", name, "error", err)
	}
	state.TripCount = trips

	return state, nil
}

func parseUnix(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}
