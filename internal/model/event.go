package model

import "time"

// BreakerOpenedEvent is emitted when an origin's breaker trips or re-opens after a failed trial.
type BreakerOpenedEvent struct {
	Origin              string
	ConsecutiveFailures int
	LastOutcome         Outcome
	CurrentDelay        time.Duration
	OpenedAt            time.Time
	FromTrial           bool
}

// BreakerRecoveredEvent is emitted when a trial succeeds and the breaker closes again.
type BreakerRecoveredEvent struct {
	Origin      string
	OpenedAt    time.Time
	RecoverTime time.Duration
}
