package main

import (
	"context"
	"time"

	"MediConnect/internal/conf"
	"MediConnect/internal/data"
	"MediConnect/pkg/breaker"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StatsReporter periodically logs the insurance circuit breaker snapshot
// together with the state mirrored in Redis. It runs as a kratos server so
// the app starts and stops it with the transports.
type StatsReporter struct {
	spec   string
	cb     *breaker.Breaker
	mirror *data.CircuitStateRepo
	cron   *cron.Cron
	logger *pkglog.LogHelper
}

// NewStatsReporter creates the reporter. An empty spec disables it.
func NewStatsReporter(c *conf.Insurance, cb *breaker.Breaker, mirror *data.CircuitStateRepo, logger log.Logger) *StatsReporter {
	spec := ""
	if c != nil && c.Breaker != nil {
		spec = c.Breaker.StatsReportSpec
	}
	return &StatsReporter{
		spec:   spec,
		cb:     cb,
		mirror: mirror,
		cron:   cron.New(cron.WithSeconds()),
		logger: pkglog.NewLogHelper(log.With(logger, "module", "cron/breaker-stats")),
	}
}

// Start registers the job and starts the scheduler.
func (r *StatsReporter) Start(context.Context) error {
	if r.spec == "" {
		r.logger.Scheduler("Circuit breaker stats reporter disabled")
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, r.report); err != nil {
		r.logger.Errorw("msg", "failed to register circuit breaker stats job", "spec", r.spec, "error", err)
		return err
	}
	r.cron.Start()
	r.logger.Scheduler("Circuit breaker stats reporter started", "spec", r.spec)
	return nil
}

// Stop waits for a running report to finish or for ctx to expire.
func (r *StatsReporter) Stop(ctx context.Context) error {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	return nil
}

func (r *StatsReporter) report() {
	snap := r.cb.Stats()
	kvs := []interface{}{
		"breaker", snap.Name,
		"state", snap.State,
		"requests", snap.Counts.Requests,
		"total_failures", snap.Counts.TotalFailures,
		"rejections", snap.Counts.Rejections,
		"timeouts", snap.Counts.Timeouts,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mirrored, err := r.mirror.Get(ctx, snap.Name)
	switch {
	case err != nil:
		r.logger.Warnw("msg", "failed to read mirrored circuit state", "breaker", snap.Name, "error", err)
	case mirrored != nil:
		kvs = append(kvs, "mirrored_state", mirrored.State, "trip_count", mirrored.TripCount)
	}

	r.logger.Circuit("Circuit breaker stats: "+string(snap.State), kvs...)
}
