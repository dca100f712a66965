package biz

import (
	"errors"
	"fmt"
	"time"

	"ScoutBot/internal/model"
	"ScoutBot/internal/origin"
)

// ErrInvalidURL is returned when the target URL has no parseable host. No state is touched.
var ErrInvalidURL = origin.ErrInvalidURL

var (
	// ErrCircuitOpen matches every *CircuitOpenError via errors.Is.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrOriginNotFound is returned by operator actions on an origin that is not tracked.
	ErrOriginNotFound = errors.New("origin not tracked")

	// ErrBlocked matches an *OriginError whose outcome was OutcomeBlocked.
	ErrBlocked = errors.New("origin blocked the request")
	// ErrRateLimited matches an *OriginError whose outcome was OutcomeRateLimited.
	ErrRateLimited = errors.New("origin rate limited the request")
	// ErrOtherFailure matches an *OriginError whose outcome was OutcomeOtherError.
	ErrOtherFailure = errors.New("request to origin failed")
)

// CircuitOpenError is a governor decision: the origin is short-circuited and the
// operation was not attempted. Callers should skip this cycle instead of retrying.
type CircuitOpenError struct {
	Origin        string
	State         model.BreakerState
	TrialInFlight bool
	RetryAfter    time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	if e.TrialInFlight {
		return fmt.Sprintf("circuit open for %s: recovery trial in flight, retry in %.0fs", e.Origin, e.RetryAfter.Seconds())
	}
	return fmt.Sprintf("circuit open for %s: retry in %.0fs", e.Origin, e.RetryAfter.Seconds())
}

// Is lets errors.Is(err, ErrCircuitOpen) match.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// OriginError tags a failure surfaced by the caller's operation with the origin it hit.
// Err is the operation's own error and may be nil when the caller classified a
// failure without returning one.
type OriginError struct {
	Origin  string
	Outcome model.Outcome
	Err     error
}

// Error implements the error interface.
func (e *OriginError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("origin %s: %s", e.Origin, e.Outcome)
	}
	return fmt.Sprintf("origin %s: %s: %v", e.Origin, e.Outcome, e.Err)
}

// Unwrap returns the operation's error.
func (e *OriginError) Unwrap() error {
	return e.Err
}

// Is matches the outcome sentinels.
func (e *OriginError) Is(target error) bool {
	switch target {
	case ErrBlocked:
		return e.Outcome == model.OutcomeBlocked
	case ErrRateLimited:
		return e.Outcome == model.OutcomeRateLimited
	case ErrOtherFailure:
		return e.Outcome == model.OutcomeOtherError
	}
	return false
}

// IsCircuitOpen reports whether err is a short-circuit decision.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// OutcomeOf returns the recorded outcome carried by err, if any.
func OutcomeOf(err error) (model.Outcome, bool) {
	var oe *OriginError
	if errors.As(err, &oe) {
		return oe.Outcome, true
	}
	return 0, false
}
