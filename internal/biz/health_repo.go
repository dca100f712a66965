package biz

import (
	"context"
	"time"

	"ScoutBot/internal/model"
)

// HealthRepo is the durable store the in-memory origin records write through to.
// It is never the source of truth while the process runs.
// Following Kratos v2 DDD architecture, the interface lives in biz and the
// implementations (Redis, MySQL) live in data.
type HealthRepo interface {
	LoadAll(ctx context.Context) ([]*model.OriginHealth, error)
	Save(ctx context.Context, health *model.OriginHealth) error
	Delete(ctx context.Context, origin string) error
}

// GovernorMetrics receives per-origin observations. A nil value disables metrics.
type GovernorMetrics interface {
	ObserveOutcome(origin string, outcome model.Outcome, latency time.Duration)
	ObserveShortCircuit(origin string)
	ObserveWait(origin string, wait time.Duration)
	ObserveTransition(origin string, from, to model.BreakerState)
	SetOriginState(origin string, state model.BreakerState, delay time.Duration)
	ForgetOrigin(origin string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOutcome(string, model.Outcome, time.Duration) {}
func (noopMetrics) ObserveShortCircuit(string) {}
func (noopMetrics) ObserveWait(string, time.Duration) {}
func (noopMetrics) ObserveTransition(string, model.BreakerState, model.BreakerState) {}
func (noopMetrics) SetOriginState(string, model.BreakerState, time.Duration) {}
func (noopMetrics) ForgetOrigin(string) {}
