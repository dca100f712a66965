package main

import (
	"context"
	"time"

	"ScoutBot/internal/conf"
	zapLogger "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

const (
	sweepJobTimeout   = 5 * time.Minute
	monitorJobTimeout = time.Minute
	feedJobTimeout    = 10 * time.Minute
)

// StartGovernorCron schedules the janitor sweep, the blocking check and, when
// feeds are configured, the feed check. Expressions use the six-field form
// (seconds first). A job that is still running when its next tick fires is skipped.
func StartGovernorCron(ctx context.Context, bc *conf.Bootstrap, a *application, logger log.Logger) *cron.Cron {
	helper := zapLogger.NewLogHelper(logger)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	jobs := 0
	add := func(name, spec string, timeout time.Duration, run func(context.Context)) {
		if spec == "" {
			helper.Scheduler("cron job disabled", "job", name)
			return
		}
		_, err := c.AddFunc(spec, func() {
			jobCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			run(jobCtx)
			helper.Scheduler("cron job finished", "job", name, "duration", time.Since(start))
		})
		if err != nil {
			helper.Errorw("msg", "failed to register cron job", "job", name, "spec", spec, "error", err)
			return
		}
		jobs++
		helper.Scheduler("cron job registered", "job", name, "spec", spec)
	}

	add("janitor_sweep", bc.Janitor.Cron, sweepJobTimeout, func(ctx context.Context) {
		a.janitor.Sweep(ctx)
	})

	add("blocking_monitor", bc.Monitor.Cron, monitorJobTimeout, func(ctx context.Context) {
		alerts := a.monitor.Check(ctx)
		if len(alerts) > 0 {
			helper.Warnw("msg", "origins look blocked", "alerts", len(alerts))
		}
	})

	if len(a.checker.URLs()) > 0 {
		add("feed_check", bc.Feeds.Cron, feedJobTimeout, func(ctx context.Context) {
			a.checker.Run(ctx)
		})
	}

	if jobs == 0 {
		return nil
	}

	c.Start()
	helper.Startup("governor cron started", "jobs", jobs)
	return c
}
