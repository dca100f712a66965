package biz

import (
	"context"
	"time"

	"ScoutBot/internal/model"
)

// AuditLogger records breaker transitions and evictions for later inspection.
// Implementations must not block the request path.
type AuditLogger interface {
	// LogBreakerTransition logs a breaker state change for an origin
	LogBreakerTransition(ctx context.Context, origin string, from, to model.BreakerState, reason string)

	// LogOriginEvicted logs the janitor removing a stale origin record
	LogOriginEvicted(ctx context.Context, origin string, lastSeen time.Time)
}
