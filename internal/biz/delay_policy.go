package biz

import (
	"time"

	"ScoutBot/internal/model"
)

// DelayPolicy maps the previous per-origin delay and the latest outcome to the next delay.
// The latest outcome always dominates: there is no averaging.
type DelayPolicy struct {
	Min         time.Duration
	Max         time.Duration
	Decay       float64 // applied on success, < 1
	Growth      float64 // applied on blocked / rate limited, > 1
	ErrorGrowth float64 // applied on other errors, > 1
}

// Next returns the delay to enforce after outcome, bounded to [Min, Max].
func (p DelayPolicy) Next(prev time.Duration, outcome model.Outcome) time.Duration {
	factor := p.ErrorGrowth
	switch outcome {
	case model.OutcomeSuccess:
		factor = p.Decay
	case model.OutcomeBlocked, model.OutcomeRateLimited:
		factor = p.Growth
	}

	next := float64(p.Clamp(prev)) * factor
	if next >= float64(p.Max) {
		return p.Max
	}
	return p.Clamp(time.Duration(next))
}

// Clamp bounds d to [Min, Max].
func (p DelayPolicy) Clamp(d time.Duration) time.Duration {
	if d < p.Min {
		return p.Min
	}
	if d > p.Max {
		return p.Max
	}
	return d
}
