package biz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ScoutBot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOriginStore_GetOrCreateIsIdempotent(t *testing.T) {
	store := newTestStore(testSettings())

	var wg sync.WaitGroup
	handles := make([]*Origin, 32)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = store.GetOrCreate("reddit.com")
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, 1, store.Len())

	snap := handles[0].Snapshot()
	assert.Equal(t, "reddit.com", snap.Origin)
	assert.Equal(t, time.Millisecond, snap.CurrentDelay)
	assert.Equal(t, model.BreakerClosed, snap.BreakerState)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestOriginStore_RecordOutcomeCounts(t *testing.T) {
	store := newTestStore(testSettings())

	store.RecordOutcome("reddit.com", model.OutcomeBlocked)
	store.RecordOutcome("reddit.com", model.OutcomeRateLimited)
	o, ok := store.Get("reddit.com")
	require.True(t, ok)
	assert.Equal(t, 2, o.Snapshot().ConsecutiveFailures)

	store.RecordOutcome("reddit.com", model.OutcomeSuccess)
	store.RecordOutcome("reddit.com", model.OutcomeOtherError)

	h := o.Snapshot()
	assert.Equal(t, uint64(4), h.TotalRequests)
	assert.Equal(t, uint64(1), h.TotalSuccesses)
	assert.Equal(t, uint64(1), h.TotalBlocked)
	assert.Equal(t, uint64(1), h.TotalRateLimited)
	assert.Equal(t, uint64(1), h.TotalOtherErrors)
	assert.Equal(t, 1, h.ConsecutiveFailures)
	assert.False(t, h.LastRequestAt.IsZero())
	assert.Equal(t, h.TotalRequests, h.TotalSuccesses+h.TotalBlocked+h.TotalRateLimited+h.TotalOtherErrors)
}

func TestOriginStore_TripsAfterThreshold(t *testing.T) {
	store := newTestStore(testSettings())

	for i := 0; i < 2; i++ {
		tr := store.RecordOutcome("reddit.com", model.OutcomeBlocked)
		assert.False(t, tr.Changed())
	}
	tr := store.RecordOutcome("reddit.com", model.OutcomeBlocked)
	assert.True(t, tr.Tripped())

	o, _ := store.Get("reddit.com")
	h := o.Snapshot()
	assert.Equal(t, model.BreakerOpen, h.BreakerState)
	assert.False(t, h.BreakerOpenedAt.IsZero())
	assert.Equal(t, 8*time.Millisecond, h.CurrentDelay)
}

func TestOriginStore_SnapshotsRecentWindow(t *testing.T) {
	store := newTestStore(testSettings())

	store.RecordOutcome("reddit.com", model.OutcomeBlocked)
	store.RecordOutcome("reddit.com", model.OutcomeBlocked)
	for i := 0; i < 10; i++ {
		store.RecordOutcome("reddit.com", model.OutcomeSuccess)
	}
	store.GetOrCreate("bbc.co.uk")

	snaps := store.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, "bbc.co.uk", snaps[0].Health.Origin)
	assert.Equal(t, 1.0, snaps[0].RecentSuccessRate())

	reddit := snaps[1]
	assert.Equal(t, 10, reddit.RecentTotal)
	assert.Equal(t, 10, reddit.RecentSuccesses)
	assert.InDelta(t, 10.0/12.0, reddit.Health.SuccessRate(), 1e-9)

	all := store.ListAll()
	require.Len(t, all, 2)
	assert.Equal(t, "reddit.com", all[1].Origin)
}

func TestOriginStore_Reset(t *testing.T) {
	store := newTestStore(testSettings())

	_, ok := store.Reset("unknown.example")
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		store.RecordOutcome("reddit.com", model.OutcomeBlocked)
	}
	prev, ok := store.Reset("reddit.com")
	require.True(t, ok)
	assert.Equal(t, model.BreakerOpen, prev)

	o, _ := store.Get("reddit.com")
	h := o.Snapshot()
	assert.Equal(t, model.BreakerClosed, h.BreakerState)
	assert.Equal(t, 0, h.ConsecutiveFailures)
	assert.Equal(t, time.Millisecond, h.CurrentDelay)
	assert.True(t, h.BreakerOpenedAt.IsZero())
	assert.Equal(t, uint64(3), h.TotalBlocked)
}

func TestOriginStore_EvictStale(t *testing.T) {
	store := newTestStore(testSettings())
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	store.now = func() time.Time { return old }
	store.GetOrCreate("stale.example")
	for i := 0; i < 3; i++ {
		store.RecordOutcome("open.example", model.OutcomeBlocked)
	}
	busy := store.acquire("busy.example")
	store.now = time.Now
	store.GetOrCreate("fresh.example")

	evicted := store.EvictStale(now.Add(-24 * time.Hour))
	require.Len(t, evicted, 1)
	assert.Equal(t, "stale.example", evicted[0].Origin)

	_, ok := store.Get("open.example")
	assert.True(t, ok, "open breakers are never evicted")
	_, ok = store.Get("busy.example")
	assert.True(t, ok, "origins held by a request are never evicted")
	_, ok = store.Get("fresh.example")
	assert.True(t, ok)

	store.release(busy)
	assert.True(t, store.Remove("busy.example", now.Add(-24*time.Hour)))
	assert.False(t, store.Remove("busy.example", now.Add(-24*time.Hour)))
	assert.Equal(t, 2, store.Len())
}

func TestOriginStore_Load(t *testing.T) {
	repo := new(MockHealthRepo)
	writer, cleanup := NewHealthWriter(repo, testLogger())
	defer cleanup()

	settings := testSettings()
	settings.OpenTimeout = time.Minute
	store := NewOriginStore(settings, writer, testLogger())
	now := time.Now()

	// already tracked in memory, must not be overwritten
	store.GetOrCreate("live.example")

	records := []*model.OriginHealth{
		{Origin: "young-open.example", BreakerState: model.BreakerOpen, BreakerOpenedAt: now.Add(-10 * time.Second), ConsecutiveFailures: 5, CurrentDelay: time.Hour},
		{Origin: "old-open.example", BreakerState: model.BreakerOpen, BreakerOpenedAt: now.Add(-time.Hour), ConsecutiveFailures: 5},
		{Origin: "half-open.example", BreakerState: model.BreakerHalfOpen, BreakerOpenedAt: now.Add(-10 * time.Second)},
		{Origin: "live.example", TotalRequests: 99},
		{Origin: ""},
		nil,
	}
	repo.On("LoadAll", mock.Anything).Return(records, nil).Once()

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)
	assert.Equal(t, 4, store.Len())

	young, _ := store.Get("young-open.example")
	assert.Equal(t, model.BreakerOpen, young.Snapshot().BreakerState)
	assert.Equal(t, settings.MaxDelay, young.Snapshot().CurrentDelay)
	assert.False(t, young.Snapshot().CreatedAt.IsZero())

	oldOpen, _ := store.Get("old-open.example")
	assert.Equal(t, model.BreakerClosed, oldOpen.Snapshot().BreakerState)
	assert.Equal(t, 0, oldOpen.Snapshot().ConsecutiveFailures)
	assert.Equal(t, settings.MinDelay, oldOpen.Snapshot().CurrentDelay)

	halfOpen, _ := store.Get("half-open.example")
	assert.Equal(t, model.BreakerOpen, halfOpen.Snapshot().BreakerState)

	live, _ := store.Get("live.example")
	assert.Zero(t, live.Snapshot().TotalRequests)

	repo.AssertExpectations(t)
}

func TestOriginStore_LoadError(t *testing.T) {
	repo := new(MockHealthRepo)
	writer, cleanup := NewHealthWriter(repo, testLogger())
	defer cleanup()

	store := NewOriginStore(testSettings(), writer, testLogger())
	repo.On("LoadAll", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	loaded, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.Zero(t, loaded)
	assert.Zero(t, store.Len())
}

func TestOriginStore_LoadWithoutPersistence(t *testing.T) {
	store := newTestStore(testSettings())

	loaded, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, loaded)
}

func TestOriginStore_WritesThrough(t *testing.T) {
	repo := new(MockHealthRepo)
	writer := newManualWriter(repo)
	store := NewOriginStore(testSettings(), writer, testLogger())

	store.RecordOutcome("reddit.com", model.OutcomeBlocked)
	store.RecordOutcome("reddit.com", model.OutcomeSuccess)

	repo.On("Save", mock.Anything, mock.MatchedBy(func(h *model.OriginHealth) bool {
		return h.Origin == "reddit.com" && h.TotalRequests == 2
	})).Return(nil).Once()

	require.NoError(t, writer.Flush(context.Background()))
	repo.AssertExpectations(t)
}
