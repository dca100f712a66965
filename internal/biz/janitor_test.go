package biz

import (
	"context"
	"testing"
	"time"

	"ScoutBot/internal/conf"
	"ScoutBot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestNewStatsJanitor_Defaults(t *testing.T) {
	j := NewStatsJanitor(nil, newTestStore(testSettings()), nil, nil, testLogger())
	assert.Equal(t, 7*24*time.Hour, j.Retention())
	assert.Equal(t, time.Hour, j.interval)

	j = NewStatsJanitor(&conf.Janitor{
		Retention: durationpb.New(time.Hour),
		Interval:  durationpb.New(time.Minute),
	}, newTestStore(testSettings()), nil, nil, testLogger())
	assert.Equal(t, time.Hour, j.Retention())
	assert.Equal(t, time.Minute, j.interval)
}

func TestStatsJanitor_Sweep(t *testing.T) {
	store := newTestStore(testSettings())
	old := time.Now().Add(-48 * time.Hour)

	store.now = func() time.Time { return old }
	store.RecordOutcome("stale.example", model.OutcomeSuccess)
	for i := 0; i < 3; i++ {
		store.RecordOutcome("open.example", model.OutcomeBlocked)
	}
	held := store.acquire("held.example")
	store.now = time.Now
	store.RecordOutcome("fresh.example", model.OutcomeSuccess)

	audit := new(MockAuditLogger)
	audit.On("LogOriginEvicted", mock.Anything, "stale.example", old).Return().Once()
	metrics := newFakeMetrics()

	j := NewStatsJanitor(&conf.Janitor{Retention: durationpb.New(24 * time.Hour)}, store, audit, metrics, testLogger())

	assert.Equal(t, 1, j.Sweep(context.Background()))
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, []string{"stale.example"}, metrics.forgotten)
	audit.AssertExpectations(t)

	// nothing else is stale while the request holds it
	assert.Equal(t, 0, j.Sweep(context.Background()))

	store.release(held)
	audit.On("LogOriginEvicted", mock.Anything, "held.example", old).Return().Once()
	assert.Equal(t, 1, j.Sweep(context.Background()))
	_, ok := store.Get("open.example")
	assert.True(t, ok)
}

func TestStatsJanitor_KeepsHalfOpenOrigins(t *testing.T) {
	settings := testSettings()
	store := newTestStore(settings)
	old := time.Now().Add(-48 * time.Hour)

	store.now = func() time.Time { return old }
	for i := 0; i < settings.FailureThreshold; i++ {
		store.RecordOutcome("recovering.example", model.OutcomeBlocked)
	}
	store.now = time.Now

	o, ok := store.Get("recovering.example")
	require.True(t, ok)
	trial, err := store.admit(o, time.Now())
	require.NoError(t, err)
	require.True(t, trial)
	require.Equal(t, model.BreakerHalfOpen, o.Snapshot().BreakerState)

	j := NewStatsJanitor(&conf.Janitor{Retention: durationpb.New(24 * time.Hour)}, store, nil, nil, testLogger())
	assert.Equal(t, 0, j.Sweep(context.Background()))
	assert.Empty(t, store.EvictStale(time.Now()))
	_, ok = store.Get("recovering.example")
	assert.True(t, ok)
}

func TestStatsJanitor_RunStopsOnCancel(t *testing.T) {
	j := NewStatsJanitor(&conf.Janitor{Interval: durationpb.New(5 * time.Millisecond)},
		newTestStore(testSettings()), nil, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
