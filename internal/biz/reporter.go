package biz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ScoutBot/internal/model"

	"gonum.org/v1/gonum/stat"
)

// OriginReport is the reporting view of one origin.
type OriginReport struct {
	Origin              string             `json:"origin"`
	TotalRequests       uint64             `json:"total_requests"`
	TotalSuccesses      uint64             `json:"total_successes"`
	TotalBlocked        uint64             `json:"total_blocked"`
	TotalRateLimited    uint64             `json:"total_rate_limited"`
	TotalOtherErrors    uint64             `json:"total_other_errors"`
	SuccessRate         float64            `json:"success_rate"`
	RecentSuccessRate   float64            `json:"recent_success_rate"`
	RecentRequests      int                `json:"recent_requests"`
	CurrentDelay        time.Duration      `json:"current_delay"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	BreakerState        model.BreakerState `json:"breaker_state"`
	BreakerOpenedAt     time.Time          `json:"breaker_opened_at,omitempty"`
	LastRequestAt       time.Time          `json:"last_request_at,omitempty"`
}

// Report aggregates every tracked origin at one point in time.
type Report struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	Origins          []OriginReport `json:"origins"`
	TotalOrigins     int            `json:"total_origins"`
	TotalRequests    uint64         `json:"total_requests"`
	TotalSuccesses   uint64         `json:"total_successes"`
	TotalBlocked     uint64         `json:"total_blocked"`
	TotalRateLimited uint64         `json:"total_rate_limited"`
	TotalOtherErrors uint64         `json:"total_other_errors"`
	SuccessRate      float64        `json:"success_rate"`
	OpenOrigins      int            `json:"open_origins"`
	HalfOpenOrigins  int            `json:"half_open_origins"`
	MeanDelay        time.Duration  `json:"mean_delay"`
	P95Delay         time.Duration  `json:"p95_delay"`
}

// StatsReporter produces read-only views of the origin store.
type StatsReporter struct {
	store *OriginStore
	now   func() time.Time
}

// NewStatsReporter creates a reporter over store.
func NewStatsReporter(store *OriginStore) *StatsReporter {
	return &StatsReporter{store: store, now: time.Now}
}

// Snapshot builds a report from copies of every record. It never blocks request
// processing beyond the brief per-origin locks taken while copying.
func (r *StatsReporter) Snapshot() *Report {
	snaps := r.store.Snapshots()

	report := &Report{
		GeneratedAt:  r.now(),
		Origins:      make([]OriginReport, 0, len(snaps)),
		TotalOrigins: len(snaps),
		SuccessRate:  1,
	}

	delays := make([]float64, 0, len(snaps))
	for _, snap := range snaps {
		h := snap.Health
		report.Origins = append(report.Origins, OriginReport{
			Origin:              h.Origin,
			TotalRequests:       h.TotalRequests,
			TotalSuccesses:      h.TotalSuccesses,
			TotalBlocked:        h.TotalBlocked,
			TotalRateLimited:    h.TotalRateLimited,
			TotalOtherErrors:    h.TotalOtherErrors,
			SuccessRate:         h.SuccessRate(),
			RecentSuccessRate:   snap.RecentSuccessRate(),
			RecentRequests:      snap.RecentTotal,
			CurrentDelay:        h.CurrentDelay,
			ConsecutiveFailures: h.ConsecutiveFailures,
			BreakerState:        h.BreakerState,
			BreakerOpenedAt:     h.BreakerOpenedAt,
			LastRequestAt:       h.LastRequestAt,
		})

		report.TotalRequests += h.TotalRequests
		report.TotalSuccesses += h.TotalSuccesses
		report.TotalBlocked += h.TotalBlocked
		report.TotalRateLimited += h.TotalRateLimited
		report.TotalOtherErrors += h.TotalOtherErrors

		switch h.BreakerState {
		case model.BreakerOpen:
			report.OpenOrigins++
		case model.BreakerHalfOpen:
			report.HalfOpenOrigins++
		}
		delays = append(delays, float64(h.CurrentDelay))
	}

	if report.TotalRequests > 0 {
		report.SuccessRate = float64(report.TotalSuccesses) / float64(report.TotalRequests)
	}
	if len(delays) > 0 {
		sort.Float64s(delays)
		report.MeanDelay = time.Duration(stat.Mean(delays, nil))
		report.P95Delay = time.Duration(stat.Quantile(0.95, stat.Empirical, delays, nil))
	}
	return report
}

// Top returns the n origins with the most requests, ties broken by origin.
func (r *StatsReporter) Top(n int) []OriginReport {
	return topByVolume(r.Snapshot().Origins, n)
}

func topByVolume(origins []OriginReport, n int) []OriginReport {
	out := make([]OriginReport, len(origins))
	copy(out, origins)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalRequests != out[j].TotalRequests {
			return out[i].TotalRequests > out[j].TotalRequests
		}
		return out[i].Origin < out[j].Origin
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FormatText renders the operator summary shown by /blockstats, listing at most n origins.
func FormatText(report *Report, n int) string {
	var b strings.Builder

	b.WriteString("Origin statistics\n")
	fmt.Fprintf(&b, "Origins tracked: %d\n", report.TotalOrigins)
	fmt.Fprintf(&b, "Requests: %d (success %.1f%%)\n", report.TotalRequests, report.SuccessRate*100)
	fmt.Fprintf(&b, "Blocked: %d  Rate limited: %d  Other errors: %d\n",
		report.TotalBlocked, report.TotalRateLimited, report.TotalOtherErrors)
	fmt.Fprintf(&b, "Breakers open: %d  half-open: %d\n", report.OpenOrigins, report.HalfOpenOrigins)
	fmt.Fprintf(&b, "Delay mean: %s  p95: %s\n", roundDelay(report.MeanDelay), roundDelay(report.P95Delay))

	top := topByVolume(report.Origins, n)
	if len(top) == 0 {
		b.WriteString("\nNo origins tracked yet.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, o := range top {
		fmt.Fprintf(&b, "%s: %d req, %.1f%% ok (recent %.1f%%), delay %s, %s\n",
			o.Origin,
			o.TotalRequests,
			o.SuccessRate*100,
			o.RecentSuccessRate*100,
			roundDelay(o.CurrentDelay),
			o.BreakerState)
	}
	return b.String()
}

func roundDelay(d time.Duration) time.Duration {
	return d.Round(100 * time.Millisecond)
}
