package biz

import (
	"context"
	"testing"
	"time"

	"ScoutBot/internal/conf"
	"ScoutBot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingMonitor_Check(t *testing.T) {
	settings := testSettings()
	settings.OpenTimeout = time.Minute
	store := newTestStore(settings)

	// open breaker
	for i := 0; i < 3; i++ {
		store.RecordOutcome("medium.com", model.OutcomeBlocked)
	}
	// closed but mostly failing: 4 of 10 succeed, never 3 failures in a row
	for _, ok := range []bool{false, false, true, false, false, true, false, false, true, true} {
		outcome := model.OutcomeRateLimited
		if ok {
			outcome = model.OutcomeSuccess
		}
		store.RecordOutcome("reddit.com", outcome)
	}
	// healthy with enough traffic
	for i := 0; i < 10; i++ {
		store.RecordOutcome("bbc.co.uk", model.OutcomeSuccess)
	}
	// failing but too little traffic to judge
	store.RecordOutcome("quiet.example", model.OutcomeBlocked)

	m := NewBlockingMonitor(&conf.Monitor{MinRequests: 10, SuccessRateThreshold: 0.5}, settings, NewStatsReporter(store), testLogger())

	alerts := m.Check(context.Background())
	require.Len(t, alerts, 2)

	assert.Equal(t, "medium.com", alerts[0].Origin)
	assert.Equal(t, model.BreakerOpen, alerts[0].State)
	assert.Greater(t, alerts[0].RetryAfter, 0.0)
	assert.LessOrEqual(t, alerts[0].RetryAfter, 60.0)

	assert.Equal(t, "reddit.com", alerts[1].Origin)
	assert.Equal(t, model.BreakerClosed, alerts[1].State)
	assert.InDelta(t, 0.4, alerts[1].SuccessRate, 1e-9)
	assert.Equal(t, uint64(10), alerts[1].TotalRequests)
	assert.Zero(t, alerts[1].RetryAfter)
}

func TestBlockingMonitor_Clean(t *testing.T) {
	store := newTestStore(testSettings())
	store.RecordOutcome("reddit.com", model.OutcomeSuccess)

	m := NewBlockingMonitor(nil, testSettings(), NewStatsReporter(store), testLogger())
	assert.Empty(t, m.Check(context.Background()))
	assert.Equal(t, uint64(10), m.minRequests)
	assert.Equal(t, 0.5, m.threshold)
}
