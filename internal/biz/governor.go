package biz

import (
	"context"
	"errors"
	"time"

	"ScoutBot/internal/model"
	"ScoutBot/internal/origin"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// Operation performs the actual outbound call and classifies its own outcome.
// Returning the zero Outcome leaves classification to the governor: an error
// becomes OutcomeOtherError, no error becomes OutcomeSuccess.
type Operation func(ctx context.Context) (model.Outcome, error)

// RequestGovernor mediates every outbound request to an external origin.
// It enforces the per-origin breaker and adaptive delay, runs the caller's
// operation and feeds the outcome back into the origin's health record.
// It never retries.
type RequestGovernor struct {
	settings Settings
	store    *OriginStore
	notifier BreakerNotifier
	audit    AuditLogger
	metrics  GovernorMetrics
	now      func() time.Time
	logger   *zlog.LogHelper
}

// NewRequestGovernor creates a governor over store. notifier, audit and metrics may be nil.
func NewRequestGovernor(
	settings Settings,
	store *OriginStore,
	notifier BreakerNotifier,
	audit AuditLogger,
	metrics GovernorMetrics,
	logger log.Logger,
) *RequestGovernor {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &RequestGovernor{
		settings: settings,
		store:    store,
		notifier: notifier,
		audit:    audit,
		metrics:  metrics,
		now:      time.Now,
		logger:   zlog.NewLogHelper(logger),
	}
}

// Store returns the origin store the governor records into.
func (g *RequestGovernor) Store() *OriginStore {
	return g.store
}

// Do runs op against rawURL's origin once the breaker admits it and the origin's
// delay has elapsed.
//
// Governor-level failures (ErrInvalidURL, *CircuitOpenError) happen before op is
// called and are never recorded. Failures surfaced by op are recorded and returned
// as *OriginError. If ctx is cancelled before op runs, nothing is recorded and
// ctx.Err() is returned. The context handed to op names the resolved origin;
// read it with zlog.GetRequestContext(ctx).Origin.
func (g *RequestGovernor) Do(ctx context.Context, rawURL string, op Operation) error {
	key, err := origin.Resolve(rawURL)
	if err != nil {
		return err
	}
	ctx = zlog.WithOrigin(ctx, key)

	if !g.settings.Enabled {
		outcome, opErr := op(ctx)
		return originResult(key, normalizeOutcome(outcome, opErr), opErr)
	}

	o := g.store.acquire(key)

	var (
		trial    bool
		held     bool
		recorded bool
	)
	defer func() {
		if trial && !recorded && g.store.abandonTrial(o) {
			g.logger.Debugw("msg", "recovery trial abandoned", "origin", key)
			g.metrics.ObserveTransition(key, model.BreakerHalfOpen, model.BreakerOpen)
		}
		if held {
			o.unlockGate()
		}
		g.store.release(o)
	}()

	if trial, err = g.admit(ctx, o); err != nil {
		return err
	}

	if err := o.lockGate(ctx); err != nil {
		return err
	}
	held = true

	// The breaker may have tripped while this request queued behind others.
	if !trial {
		if trial, err = g.admit(ctx, o); err != nil {
			return err
		}
	}

	if wait := g.store.pendingDelay(o, g.now()); wait > 0 {
		g.metrics.ObserveWait(key, wait)
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}

	opCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.settings.RequestTimeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, g.settings.RequestTimeout)
	}
	start := g.now()
	outcome, opErr := op(opCtx)
	cancel()

	// The caller abandoned the request; the result says nothing about the origin.
	if opErr != nil && errors.Is(ctx.Err(), context.Canceled) {
		return opErr
	}

	outcome = normalizeOutcome(outcome, opErr)
	tr := g.store.record(o, outcome, g.now())
	recorded = true

	g.afterRecord(ctx, o, outcome, tr, g.now().Sub(start))
	return originResult(key, outcome, opErr)
}

// Execute is Do for operations that produce a value. The value is returned only
// when the operation succeeded.
func Execute[T any](ctx context.Context, g *RequestGovernor, rawURL string, op func(ctx context.Context) (T, model.Outcome, error)) (T, error) {
	var result T
	err := g.Do(ctx, rawURL, func(ctx context.Context) (model.Outcome, error) {
		v, outcome, err := op(ctx)
		result = v
		return outcome, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// TimeUntilRetry reports how long rawURL's origin stays short-circuited.
func (g *RequestGovernor) TimeUntilRetry(rawURL string) (time.Duration, error) {
	key, err := origin.Resolve(rawURL)
	if err != nil {
		return 0, err
	}
	o, ok := g.store.Get(key)
	if !ok {
		return 0, nil
	}
	return g.store.retryAfter(o, g.now()), nil
}

// ResetOrigin forces an origin back to Closed (operator action).
func (g *RequestGovernor) ResetOrigin(ctx context.Context, key string) error {
	prev, ok := g.store.Reset(key)
	if !ok {
		return ErrOriginNotFound
	}

	g.logger.Infow("msg", "origin breaker reset by operator",
		"origin", key,
		"previous_state", prev.String())
	g.metrics.SetOriginState(key, model.BreakerClosed, g.settings.MinDelay)
	if prev != model.BreakerClosed {
		g.metrics.ObserveTransition(key, prev, model.BreakerClosed)
	}
	if g.audit != nil {
		g.audit.LogBreakerTransition(ctx, key, prev, model.BreakerClosed, "operator reset")
	}
	return nil
}

func (g *RequestGovernor) admit(ctx context.Context, o *Origin) (bool, error) {
	trial, err := g.store.admit(o, g.now())
	if err != nil {
		g.metrics.ObserveShortCircuit(o.key)
		g.logger.Governor("request short-circuited", "origin", o.key, "reason", err.Error())
		return false, err
	}

	if trial {
		g.logger.Governor("breaker half-open, admitting recovery trial", "origin", o.key, "state", model.BreakerHalfOpen.String())
		g.metrics.ObserveTransition(o.key, model.BreakerOpen, model.BreakerHalfOpen)
		if g.audit != nil {
			g.audit.LogBreakerTransition(ctx, o.key, model.BreakerOpen, model.BreakerHalfOpen, "open timeout elapsed")
		}
	}
	return trial, nil
}

func (g *RequestGovernor) afterRecord(ctx context.Context, o *Origin, outcome model.Outcome, tr Transition, latency time.Duration) {
	snap := o.Snapshot()
	g.metrics.ObserveOutcome(o.key, outcome, latency)
	g.metrics.SetOriginState(o.key, snap.BreakerState, snap.CurrentDelay)

	if outcome.IsFailure() {
		g.logger.Debugw("msg", "origin request failed",
			"origin", o.key,
			"outcome", outcome.String(),
			"consecutive_failures", snap.ConsecutiveFailures,
			"current_delay", snap.CurrentDelay)
	}

	if !tr.Changed() {
		return
	}
	g.metrics.ObserveTransition(o.key, tr.From, tr.To)

	// Notifications outlive the request that triggered them.
	nctx := context.WithoutCancel(ctx)

	switch {
	case tr.Tripped():
		fromTrial := tr.From == model.BreakerHalfOpen
		g.logger.Breaker("origin breaker opened",
			"origin", o.key,
			"state", model.BreakerOpen.String(),
			"from", tr.From.String(),
			"outcome", outcome.String(),
			"consecutive_failures", snap.ConsecutiveFailures,
			"current_delay", snap.CurrentDelay)
		if g.audit != nil {
			reason := "consecutive failures reached threshold"
			if fromTrial {
				reason = "recovery trial failed"
			}
			g.audit.LogBreakerTransition(nctx, o.key, tr.From, tr.To, reason)
		}
		if g.notifier != nil {
			event := &model.BreakerOpenedEvent{
				Origin:              o.key,
				ConsecutiveFailures: snap.ConsecutiveFailures,
				LastOutcome:         outcome,
				CurrentDelay:        snap.CurrentDelay,
				OpenedAt:            snap.BreakerOpenedAt,
				FromTrial:           fromTrial,
			}
			if err := g.notifier.NotifyBreakerOpened(nctx, event); err != nil {
				g.logger.Warnw("msg", "failed to notify breaker opened", "origin", o.key, "error", err)
			}
		}
	case tr.Recovered():
		g.logger.Success("origin breaker recovered",
			"origin", o.key,
			"state", model.BreakerClosed.String(),
			"open_for", tr.At.Sub(tr.OpenedAt))
		if g.audit != nil {
			g.audit.LogBreakerTransition(nctx, o.key, tr.From, tr.To, "recovery trial succeeded")
		}
		if g.notifier != nil {
			event := &model.BreakerRecoveredEvent{
				Origin:      o.key,
				OpenedAt:    tr.OpenedAt,
				RecoverTime: tr.At.Sub(tr.OpenedAt),
			}
			if err := g.notifier.NotifyBreakerRecovered(nctx, event); err != nil {
				g.logger.Warnw("msg", "failed to notify breaker recovered", "origin", o.key, "error", err)
			}
		}
	}
}

func normalizeOutcome(outcome model.Outcome, err error) model.Outcome {
	switch outcome {
	case model.OutcomeSuccess, model.OutcomeBlocked, model.OutcomeRateLimited, model.OutcomeOtherError:
		return outcome
	}
	if err != nil {
		return model.OutcomeOtherError
	}
	return model.OutcomeSuccess
}

func originResult(key string, outcome model.Outcome, err error) error {
	if outcome == model.OutcomeSuccess && err == nil {
		return nil
	}
	return &OriginError{Origin: key, Outcome: outcome, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
