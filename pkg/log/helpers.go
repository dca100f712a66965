package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper extends the Kratos log.Helper with one method per log category.
// Each method adds a "type" field that the EmojiConsoleEncoder maps to an emoji.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper creates a LogHelper.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func withType(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	return append(allKvs, "type", logType)
}

// Startup logs process lifecycle events (🚀).
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "startup", kvs)...)
}

// Success logs a completed operation (✅).
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "success", kvs)...)
}

// Governor logs admission and delay decisions (🛡️).
func (h *LogHelper) Governor(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "governor", kvs)...)
}

// Breaker logs circuit breaker transitions (🔌).
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "breaker", kvs)...)
}

// RateLimit logs origins that block or throttle us (🚦).
func (h *LogHelper) RateLimit(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "rate_limit", kvs)...)
}

// Janitor logs stale record eviction (🧹).
func (h *LogHelper) Janitor(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "janitor", kvs)...)
}

// Feed logs feed check cycles (📰).
func (h *LogHelper) Feed(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "feed", kvs)...)
}

// Database logs MySQL operations (💾).
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "database", kvs)...)
}

// Redis logs Redis operations (📦).
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "redis", kvs)...)
}

// Scheduler logs cron job runs (🎯).
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "scheduler", kvs)...)
}

// Audit logs audit trail events (📋).
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "audit", kvs)...)
}

// Fetch logs one outbound request with its status and duration.
func (h *LogHelper) Fetch(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, url, status, durationMs)
	allKvs := withType(msg, "fetch", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"origin", reqCtx.Origin,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// Request logs an operator HTTP request and flags slow ones.
func (h *LogHelper) Request(ctx context.Context, method, path string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s", method, path, status, durationMs, reqCtx.RequestID)
	allKvs := withType(msg, "request", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)

	if durationMs > slowRequestThresholdMs {
		h.SlowRequest(ctx, method, path, durationMs, slowRequestThresholdMs)
	}
}

const slowRequestThresholdMs = 1000

// SlowRequest warns about a request that exceeded thresholdMs (🐌).
func (h *LogHelper) SlowRequest(ctx context.Context, method, path string, durationMs, thresholdMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, path, durationMs, thresholdMs)
	allKvs := withType(msg, "slow_request", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"duration_ms", durationMs,
		"threshold_ms", thresholdMs,
	)
	h.Warnw(allKvs...)
}

// CacheStats logs the state of an in-process cache (📊).
func (h *LogHelper) CacheStats(cacheName string, size, maxSize int, kvs ...interface{}) {
	msg := fmt.Sprintf("Cache stats - %s | Size: %d/%d", cacheName, size, maxSize)
	allKvs := withType(msg, "cache_stats", kvs)
	allKvs = append(allKvs,
		"cache_name", cacheName,
		"size", size,
		"max_size", maxSize,
	)
	h.Debugw(allKvs...)
}
