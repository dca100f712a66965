package biz

import (
	"time"

	"ScoutBot/internal/model"
)

// CircuitBreaker is the per-origin Closed → Open → HalfOpen state machine.
// It operates on a health record the caller has already locked.
type CircuitBreaker struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// Transition describes a breaker state change caused by one admission or outcome.
type Transition struct {
	Origin   string
	From     model.BreakerState
	To       model.BreakerState
	Outcome  model.Outcome
	At       time.Time
	OpenedAt time.Time // when the breaker had opened, for recoveries
}

// Changed reports whether the state actually moved.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Tripped reports whether the breaker entered Open.
func (t Transition) Tripped() bool {
	return t.Changed() && t.To == model.BreakerOpen
}

// Recovered reports whether a trial closed the breaker.
func (t Transition) Recovered() bool {
	return t.From == model.BreakerHalfOpen && t.To == model.BreakerClosed
}

// Admit decides whether a request may proceed. An Open origin whose timeout has
// elapsed moves to HalfOpen and the caller becomes the single trial.
func (cb CircuitBreaker) Admit(h *model.OriginHealth, now time.Time) (trial bool, err error) {
	switch h.BreakerState {
	case model.BreakerClosed:
		return false, nil
	case model.BreakerOpen:
		remaining := cb.remaining(h, now)
		if remaining <= 0 {
			h.BreakerState = model.BreakerHalfOpen
			return true, nil
		}
		return false, &CircuitOpenError{
			Origin:     h.Origin,
			State:      model.BreakerOpen,
			RetryAfter: remaining,
		}
	default:
		return false, &CircuitOpenError{
			Origin:        h.Origin,
			State:         model.BreakerHalfOpen,
			TrialInFlight: true,
			RetryAfter:    cb.trialRetryHint(),
		}
	}
}

// trialRetryHintMax bounds the wait suggested while a recovery trial is in flight.
const trialRetryHintMax = 5 * time.Second

// trialRetryHint is the wait suggested to callers rejected behind a trial. The
// trial's result is unknown, so this is a hint rather than a deadline.
func (cb CircuitBreaker) trialRetryHint() time.Duration {
	if cb.OpenTimeout > 0 && cb.OpenTimeout < trialRetryHintMax {
		return cb.OpenTimeout
	}
	return trialRetryHintMax
}

// RetryAfter returns how long until the origin may accept a request again. It is
// zero only when a request would be admitted now. A HalfOpen origin reports a
// short positive hint because its single trial is still in flight.
func (cb CircuitBreaker) RetryAfter(h *model.OriginHealth, now time.Time) time.Duration {
	switch h.BreakerState {
	case model.BreakerOpen:
		if r := cb.remaining(h, now); r > 0 {
			return r
		}
		return 0
	case model.BreakerHalfOpen:
		return cb.trialRetryHint()
	default:
		return 0
	}
}

// OnOutcome applies the breaker transition for an outcome already counted into h.
// During HalfOpen the outcome is the trial's.
func (cb CircuitBreaker) OnOutcome(h *model.OriginHealth, outcome model.Outcome, now time.Time) Transition {
	tr := Transition{
		Origin:   h.Origin,
		From:     h.BreakerState,
		To:       h.BreakerState,
		Outcome:  outcome,
		At:       now,
		OpenedAt: h.BreakerOpenedAt,
	}

	switch h.BreakerState {
	case model.BreakerHalfOpen:
		if outcome.IsFailure() {
			h.BreakerState = model.BreakerOpen
			h.BreakerOpenedAt = now
		} else {
			h.BreakerState = model.BreakerClosed
			h.BreakerOpenedAt = time.Time{}
			h.ConsecutiveFailures = 0
		}
	case model.BreakerClosed:
		if outcome.IsFailure() && h.ConsecutiveFailures >= cb.FailureThreshold {
			h.BreakerState = model.BreakerOpen
			h.BreakerOpenedAt = now
		}
	}

	tr.To = h.BreakerState
	return tr
}

// AbandonTrial returns a HalfOpen origin to Open without touching the open window,
// so the next request may try again immediately.
func (cb CircuitBreaker) AbandonTrial(h *model.OriginHealth) bool {
	if h.BreakerState != model.BreakerHalfOpen {
		return false
	}
	h.BreakerState = model.BreakerOpen
	return true
}

// Restore applies the restart rule to a persisted record: an open window older than
// OpenTimeout comes back Closed, anything younger comes back Open. A persisted
// HalfOpen lost its trial with the previous process and is treated as Open.
func (cb CircuitBreaker) Restore(h *model.OriginHealth, now time.Time) {
	if h.BreakerState == model.BreakerClosed {
		return
	}
	if h.BreakerOpenedAt.IsZero() || now.Sub(h.BreakerOpenedAt) >= cb.OpenTimeout {
		h.BreakerState = model.BreakerClosed
		h.BreakerOpenedAt = time.Time{}
		h.ConsecutiveFailures = 0
		return
	}
	h.BreakerState = model.BreakerOpen
}

func (cb CircuitBreaker) remaining(h *model.OriginHealth, now time.Time) time.Duration {
	return h.BreakerOpenedAt.Add(cb.OpenTimeout).Sub(now)
}
