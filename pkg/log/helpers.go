package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// SlowRequestThreshold is the duration in milliseconds above which a request
// is also logged as slow.
const SlowRequestThreshold int64 = 1000

// LogHelper extends the Kratos log.Helper with typed log methods. Each method
// adds a "type" field that the EmojiConsoleEncoder maps to an emoji.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper creates a typed log helper.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func (h *LogHelper) typed(level log.Level, logType, msg string, kvs []interface{}) {
	all := make([]interface{}, 0, len(kvs)+4)
	all = append(all, log.DefaultMessageKey, msg)
	all = append(all, kvs...)
	all = append(all, "type", logType)
	h.Log(level, all...)
}

// API logs an outbound or inbound API interaction.
func (h *LogHelper) API(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "api", msg, kvs)
}

// Auth logs an authentication outcome.
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "auth", msg, kvs)
}

// Security logs a rejected or suspicious access.
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.typed(log.LevelWarn, "security", msg, kvs)
}

// Appointment logs an appointment lifecycle event.
func (h *LogHelper) Appointment(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "appointment", msg, kvs)
}

// Insurance logs an insurance verification event.
func (h *LogHelper) Insurance(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "insurance", msg, kvs)
}

// Circuit logs a circuit breaker report or transition.
func (h *LogHelper) Circuit(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "circuit", msg, kvs)
}

// Database logs a database operation.
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.typed(log.LevelDebug, "database", msg, kvs)
}

// Redis logs a Redis operation.
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.typed(log.LevelDebug, "redis", msg, kvs)
}

// Scheduler logs a cron job run.
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "scheduler", msg, kvs)
}

// Startup logs process lifecycle events.
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "startup", msg, kvs)
}

// Audit logs an audit trail event.
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.typed(log.LevelInfo, "audit", msg, kvs)
}

// RequestWithContext logs a completed HTTP request with the request id and
// caller taken from ctx, and reports it as slow past SlowRequestThreshold.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	userID, role := reqCtx.Principal()

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s", method, url, status, durationMs, reqCtx.RequestID)
	kvs = append(kvs, reqCtx.Metadata()...)
	kvs = append(kvs,
		"request_id", reqCtx.RequestID,
		"user_id", userID,
		"role", role,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.typed(log.LevelInfo, "request", msg, kvs)

	if durationMs > SlowRequestThreshold {
		h.SlowRequest(ctx, method, url, durationMs, SlowRequestThreshold)
	}
}

// SlowRequest logs a request that exceeded threshold milliseconds.
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)
	kvs = append(kvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
	)
	h.typed(log.LevelWarn, "slow_request", msg, kvs)
}
