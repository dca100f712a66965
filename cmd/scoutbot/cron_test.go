package main

import (
	"context"
	"os"
	"testing"
	"time"

	"ScoutBot/internal/biz"
	"ScoutBot/internal/conf"
	"ScoutBot/internal/feed"
	zapLogger "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestApplication(feeds *conf.Feeds) *application {
	return newTestApplicationWithLogger(feeds, log.NewStdLogger(os.Stdout))
}

func newTestApplicationWithLogger(feeds *conf.Feeds, logger log.Logger) *application {
	settings := biz.DefaultSettings()
	store := biz.NewOriginStore(settings, nil, logger)
	reporter := biz.NewStatsReporter(store)
	return newApplication(
		nil,
		store,
		biz.NewStatsJanitor(nil, store, nil, nil, logger),
		biz.NewBlockingMonitor(nil, settings, reporter, logger),
		feed.NewChecker(feeds, nil, logger),
	)
}

func testBootstrap(janitorCron, monitorCron, feedCron string) *conf.Bootstrap {
	return &conf.Bootstrap{
		Janitor: &conf.Janitor{Cron: janitorCron},
		Monitor: &conf.Monitor{Cron: monitorCron},
		Feeds:   &conf.Feeds{Cron: feedCron},
	}
}

func TestStartGovernorCronRegistersJobs(t *testing.T) {
	bc := testBootstrap("0 0 3 * * *", "0 0 */2 * * *", "0 */10 * * * *")
	a := newTestApplication(&conf.Feeds{URLs: []string{"https://example.com/feed.xml"}})

	c := StartGovernorCron(context.Background(), bc, a, log.DefaultLogger)
	require.NotNil(t, c)
	defer c.Stop()

	assert.Len(t, c.Entries(), 3)
}

func TestStartGovernorCronSkipsFeedsWithoutURLs(t *testing.T) {
	bc := testBootstrap("0 0 3 * * *", "0 0 */2 * * *", "0 */10 * * * *")
	a := newTestApplication(&conf.Feeds{})

	c := StartGovernorCron(context.Background(), bc, a, log.DefaultLogger)
	require.NotNil(t, c)
	defer c.Stop()

	assert.Len(t, c.Entries(), 2)
}

func TestStartGovernorCronSkipsInvalidAndEmptySpecs(t *testing.T) {
	bc := testBootstrap("not a cron", "", "")
	a := newTestApplication(&conf.Feeds{})

	assert.Nil(t, StartGovernorCron(context.Background(), bc, a, log.DefaultLogger))
}

func TestStartBackgroundStopWaitsForJanitor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zapLogger.NewKratosAdapter(zap.New(core))
	a := newTestApplicationWithLogger(&conf.Feeds{}, logger)

	stop := startBackground(testBootstrap("0 0 3 * * *", "", ""), a, logger)

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}

	assert.Equal(t, 1, logs.FilterMessage("stats janitor stopped").Len(),
		"janitor loop has returned once stop returns")
}
