package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"MediConnect/internal/conf"
	"MediConnect/internal/data"
	"MediConnect/pkg/breaker"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newReporter(t *testing.T, spec string) (*StatsReporter, *breaker.Breaker, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(buf), zapcore.DebugLevel)
	logger := pkglog.NewKratosAdapter(zap.New(core))

	d, cleanup, err := data.NewData(&conf.Data{}, log.DefaultLogger, nil, nil, data.NewCacheClient(nil))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	cb := breaker.New(data.InsuranceBreakerName, breaker.DefaultConfig(), log.DefaultLogger)
	c := &conf.Insurance{Breaker: &conf.Insurance_Breaker{StatsReportSpec: spec}}
	return NewStatsReporter(c, cb, data.NewCircuitStateRepo(d, log.DefaultLogger), logger), cb, buf
}

func TestStatsReporter_Report(t *testing.T) {
	r, cb, buf := newReporter(t, "@every 1h")

	_, _ = cb.Execute(context.Background(), func(context.Context) (any, error) {
		return nil, errors.New("insurance down")
	})
	r.report()

	assert.Contains(t, buf.String(), "Circuit breaker stats: OPEN")
	assert.Contains(t, buf.String(), `"type":"circuit"`)
	assert.Contains(t, buf.String(), `"total_failures":1`)
}

func TestStatsReporter_Lifecycle(t *testing.T) {
	r, _, buf := newReporter(t, "@every 1h")
	require.NoError(t, r.Start(context.Background()))
	assert.Contains(t, buf.String(), "stats reporter started")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
}

func TestStatsReporter_DisabledAndInvalid(t *testing.T) {
	r, _, buf := newReporter(t, "")
	require.NoError(t, r.Start(context.Background()))
	assert.Contains(t, buf.String(), "disabled")

	r, _, _ = newReporter(t, "not a cron spec")
	assert.Error(t, r.Start(context.Background()))
}
