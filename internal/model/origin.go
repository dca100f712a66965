// Package model holds the plain data types shared by the governor layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// BreakerState is the circuit breaker position of one origin.
type BreakerState int

const (
	// BreakerClosed lets requests flow normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen short-circuits every request until the open timeout passes.
	BreakerOpen
	// BreakerHalfOpen has exactly one trial request in flight.
	BreakerHalfOpen
)

// String returns the lowercase state name used in logs, metrics and reports.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseBreakerState converts a persisted state name back into a BreakerState.
func ParseBreakerState(s string) (BreakerState, error) {
	switch strings.ToLower(s) {
	case "closed", "":
		return BreakerClosed, nil
	case "open":
		return BreakerOpen, nil
	case "half_open", "halfopen":
		return BreakerHalfOpen, nil
	default:
		return BreakerClosed, fmt.Errorf("unknown breaker state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s BreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BreakerState) UnmarshalText(text []byte) error {
	parsed, err := ParseBreakerState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Outcome classifies what happened to one outbound request.
// The zero value means "not classified by the caller"; the governor turns it into
// OutcomeSuccess or OutcomeOtherError depending on whether an error came back.
type Outcome int

const (
	// OutcomeSuccess means the origin answered normally.
	OutcomeSuccess Outcome = iota + 1
	// OutcomeBlocked means the origin refused us (HTTP 403 class).
	OutcomeBlocked
	// OutcomeRateLimited means the origin throttled us (HTTP 429 class).
	OutcomeRateLimited
	// OutcomeOtherError covers transport failures, timeouts and 5xx answers.
	OutcomeOtherError
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeOtherError:
		return "other_error"
	default:
		return "unclassified"
	}
}

// IsFailure reports whether the outcome counts against the origin.
func (o Outcome) IsFailure() bool {
	return o != OutcomeSuccess
}

// OriginHealth is the health record of one normalized origin.
type OriginHealth struct {
	Origin string `json:"origin"`

	TotalRequests    uint64 `json:"total_requests"`
	TotalSuccesses   uint64 `json:"total_successes"`
	TotalBlocked     uint64 `json:"total_blocked"`
	TotalRateLimited uint64 `json:"total_rate_limited"`
	TotalOtherErrors uint64 `json:"total_other_errors"`

	// CurrentDelay is the minimum spacing enforced before the next request.
	CurrentDelay        time.Duration `json:"current_delay"`
	ConsecutiveFailures int           `json:"consecutive_failures"`

	BreakerState    BreakerState `json:"breaker_state"`
	BreakerOpenedAt time.Time    `json:"breaker_opened_at"`

	LastRequestAt time.Time `json:"last_request_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// SuccessRate returns the lifetime success ratio in [0,1], or 1 when nothing was recorded.
func (h *OriginHealth) SuccessRate() float64 {
	if h.TotalRequests == 0 {
		return 1
	}
	return float64(h.TotalSuccesses) / float64(h.TotalRequests)
}

// LastSeen is the newest of LastRequestAt and CreatedAt.
func (h *OriginHealth) LastSeen() time.Time {
	if h.LastRequestAt.After(h.CreatedAt) {
		return h.LastRequestAt
	}
	return h.CreatedAt
}
