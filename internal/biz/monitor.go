package biz

import (
	"context"

	"ScoutBot/internal/conf"
	"ScoutBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultMonitorMinRequests  = 10
	defaultSuccessRateWarnings = 0.5
)

// Alert flags one origin the operator should look at.
type Alert struct {
	Origin        string             `json:"origin"`
	State         model.BreakerState `json:"state"`
	SuccessRate   float64            `json:"success_rate"`
	TotalRequests uint64             `json:"total_requests"`
	RetryAfter    float64            `json:"retry_after_seconds"` // 0 when Closed
}

// BlockingMonitor periodically scans the store for origins that keep refusing us.
type BlockingMonitor struct {
	reporter    *StatsReporter
	breaker     CircuitBreaker
	minRequests uint64
	threshold   float64
	logger      *log.Helper
}

// NewBlockingMonitor creates a monitor over the reporter's store.
func NewBlockingMonitor(c *conf.Monitor, settings Settings, reporter *StatsReporter, logger log.Logger) *BlockingMonitor {
	m := &BlockingMonitor{
		reporter:    reporter,
		breaker:     settings.circuitBreaker(),
		minRequests: defaultMonitorMinRequests,
		threshold:   defaultSuccessRateWarnings,
		logger:      log.NewHelper(logger),
	}
	if c != nil {
		if c.MinRequests > 0 {
			m.minRequests = uint64(c.MinRequests)
		}
		if c.SuccessRateThreshold > 0 {
			m.threshold = c.SuccessRateThreshold
		}
	}
	return m
}

// Check returns every origin that is not Closed, plus every Closed origin with
// enough traffic whose success rate fell below the threshold.
func (m *BlockingMonitor) Check(ctx context.Context) []Alert {
	report := m.reporter.Snapshot()

	var alerts []Alert
	for _, o := range report.Origins {
		if o.BreakerState == model.BreakerClosed &&
			(o.TotalRequests < m.minRequests || o.SuccessRate >= m.threshold) {
			continue
		}

		alert := Alert{
			Origin:        o.Origin,
			State:         o.BreakerState,
			SuccessRate:   o.SuccessRate,
			TotalRequests: o.TotalRequests,
		}
		if o.BreakerState == model.BreakerOpen {
			h := model.OriginHealth{BreakerState: o.BreakerState, BreakerOpenedAt: o.BreakerOpenedAt}
			alert.RetryAfter = m.breaker.RetryAfter(&h, report.GeneratedAt).Seconds()
		}
		alerts = append(alerts, alert)

		m.logger.WithContext(ctx).Warnw("msg", "origin looks blocked",
			"origin", o.Origin,
			"state", o.BreakerState.String(),
			"success_rate", o.SuccessRate,
			"total_requests", o.TotalRequests,
			"retry_after_seconds", alert.RetryAfter)
	}

	if len(alerts) == 0 {
		m.logger.Debugw("msg", "blocking check clean", "origins", report.TotalOrigins)
	}
	return alerts
}
