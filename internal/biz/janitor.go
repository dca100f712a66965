package biz

import (
	"context"
	"time"

	"ScoutBot/internal/conf"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultRetention     = 7 * 24 * time.Hour
	defaultJanitorPeriod = time.Hour
)

// StatsJanitor evicts stale origin records so memory stays bounded over long
// uptimes. Only Closed origins that no request currently holds are removed.
type StatsJanitor struct {
	store     *OriginStore
	audit     AuditLogger
	metrics   GovernorMetrics
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zlog.LogHelper
}

// NewStatsJanitor creates a janitor. audit and metrics may be nil.
func NewStatsJanitor(c *conf.Janitor, store *OriginStore, audit AuditLogger, metrics GovernorMetrics, logger log.Logger) *StatsJanitor {
	retention, interval := defaultRetention, defaultJanitorPeriod
	if c != nil {
		if d := c.Retention.AsDuration(); d > 0 {
			retention = d
		}
		if d := c.Interval.AsDuration(); d > 0 {
			interval = d
		}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &StatsJanitor{
		store:     store,
		audit:     audit,
		metrics:   metrics,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    zlog.NewLogHelper(logger),
	}
}

// Retention returns how long an idle origin is kept.
func (j *StatsJanitor) Retention() time.Duration {
	return j.retention
}

// Sweep removes every evictable origin last seen more than Retention ago and
// returns how many were removed.
func (j *StatsJanitor) Sweep(ctx context.Context) int {
	cutoff := j.now().Add(-j.retention)
	evicted := j.store.EvictStale(cutoff)

	for _, h := range evicted {
		j.metrics.ForgetOrigin(h.Origin)
		if j.audit != nil {
			j.audit.LogOriginEvicted(ctx, h.Origin, h.LastSeen())
		}
	}

	if len(evicted) > 0 {
		j.logger.Janitor("evicted stale origin records",
			"evicted", len(evicted),
			"remaining", j.store.Len(),
			"cutoff", cutoff)
	} else {
		j.logger.Debugw("msg", "no stale origin records", "tracked", j.store.Len())
	}
	return len(evicted)
}

// Run sweeps every Interval until ctx is cancelled.
func (j *StatsJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Infow("msg", "stats janitor started", "interval", j.interval, "retention", j.retention)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("stats janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}
