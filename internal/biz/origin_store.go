package biz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ScoutBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// Origin is the handle of one tracked origin. It pairs the health record with the
// per-origin gate that serializes wait → execute → record for that origin only.
type Origin struct {
	key string

	mu     sync.Mutex // guards health and recent
	health model.OriginHealth
	recent *outcomeRing

	gate chan struct{}
	refs atomic.Int64
}

// Key returns the normalized origin key.
func (o *Origin) Key() string {
	return o.key
}

// Snapshot returns a copy of the current health record.
func (o *Origin) Snapshot() model.OriginHealth {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.health
}

func (o *Origin) lockGate(ctx context.Context) error {
	select {
	case o.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Origin) unlockGate() {
	<-o.gate
}

// OriginSnapshot is a point-in-time copy used for reporting.
type OriginSnapshot struct {
	Health          model.OriginHealth
	RecentSuccesses int
	RecentTotal     int
}

// RecentSuccessRate is the success ratio over the recent window, or 1 when empty.
func (s OriginSnapshot) RecentSuccessRate() float64 {
	if s.RecentTotal == 0 {
		return 1
	}
	return float64(s.RecentSuccesses) / float64(s.RecentTotal)
}

// OriginStore keeps one health record per origin. The map lock is only held for
// lookup and insertion; every read-modify-write happens under the origin's own lock.
type OriginStore struct {
	mu      sync.RWMutex
	origins map[string]*Origin

	policy       DelayPolicy
	breaker      CircuitBreaker
	recentWindow int

	writer *HealthWriter
	now    func() time.Time
	logger *log.Helper
}

// NewOriginStore creates an empty store. writer may be nil.
func NewOriginStore(settings Settings, writer *HealthWriter, logger log.Logger) *OriginStore {
	return &OriginStore{
		origins:      make(map[string]*Origin),
		policy:       settings.delayPolicy(),
		breaker:      settings.circuitBreaker(),
		recentWindow: settings.RecentWindow,
		writer:       writer,
		now:          time.Now,
		logger:       log.NewHelper(logger),
	}
}

// GetOrCreate returns the handle for origin, creating it with defaults on first use.
// Repeated calls return the same handle.
func (s *OriginStore) GetOrCreate(origin string) *Origin {
	s.mu.RLock()
	o, ok := s.origins[origin]
	s.mu.RUnlock()
	if ok {
		return o
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(origin)
}

// Get returns the handle for origin if it is tracked.
func (s *OriginStore) Get(origin string) (*Origin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.origins[origin]
	return o, ok
}

// RecordOutcome counts outcome into origin's record and recomputes delay and breaker
// state from the updated record.
func (s *OriginStore) RecordOutcome(origin string, outcome model.Outcome) Transition {
	return s.record(s.GetOrCreate(origin), outcome, s.now())
}

// ListAll returns a snapshot of every record, ordered by origin.
func (s *OriginStore) ListAll() []model.OriginHealth {
	snaps := s.Snapshots()
	out := make([]model.OriginHealth, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snap.Health)
	}
	return out
}

// Snapshots returns record copies plus the recent-window counts, ordered by origin.
func (s *OriginStore) Snapshots() []OriginSnapshot {
	s.mu.RLock()
	handles := make([]*Origin, 0, len(s.origins))
	for _, o := range s.origins {
		handles = append(handles, o)
	}
	s.mu.RUnlock()

	out := make([]OriginSnapshot, 0, len(handles))
	for _, o := range handles {
		o.mu.Lock()
		snap := OriginSnapshot{Health: o.health}
		if o.recent != nil {
			snap.RecentSuccesses, snap.RecentTotal = o.recent.counts()
		}
		o.mu.Unlock()
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Health.Origin < out[j].Health.Origin
	})
	return out
}

// Len returns the number of tracked origins.
func (s *OriginStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.origins)
}

// Remove evicts origin if it is Closed, was last seen before cutoff and no request
// currently holds it. It reports whether the record was removed.
func (s *OriginStore) Remove(origin string, cutoff time.Time) bool {
	s.mu.Lock()
	o, ok := s.origins[origin]
	if !ok || !evictable(o, cutoff) {
		s.mu.Unlock()
		return false
	}
	delete(s.origins, origin)
	s.mu.Unlock()

	s.writer.Delete(origin)
	return true
}

// EvictStale removes every evictable origin last seen before cutoff and returns the
// removed records.
func (s *OriginStore) EvictStale(cutoff time.Time) []model.OriginHealth {
	var evicted []model.OriginHealth

	s.mu.Lock()
	for key, o := range s.origins {
		if !evictable(o, cutoff) {
			continue
		}
		o.mu.Lock()
		evicted = append(evicted, o.health)
		o.mu.Unlock()
		delete(s.origins, key)
	}
	s.mu.Unlock()

	for _, h := range evicted {
		s.writer.Delete(h.Origin)
	}
	return evicted
}

// Reset forces origin back to Closed with a clean failure streak and minimum delay.
// It returns the state the origin was in.
func (s *OriginStore) Reset(origin string) (model.BreakerState, bool) {
	o, ok := s.Get(origin)
	if !ok {
		return model.BreakerClosed, false
	}

	o.mu.Lock()
	prev := o.health.BreakerState
	o.health.BreakerState = model.BreakerClosed
	o.health.BreakerOpenedAt = time.Time{}
	o.health.ConsecutiveFailures = 0
	o.health.CurrentDelay = s.policy.Min
	snap := o.health
	o.mu.Unlock()

	s.writer.Put(snap)
	return prev, true
}

// Load restores persisted records. Records already tracked in memory win.
func (s *OriginStore) Load(ctx context.Context) (int, error) {
	if !s.writer.Enabled() {
		return 0, nil
	}

	records, err := s.writer.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load origin health: %w", err)
	}

	now := s.now()
	loaded := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range records {
		if h == nil || h.Origin == "" {
			continue
		}
		if _, exists := s.origins[h.Origin]; exists {
			continue
		}

		rec := *h
		s.breaker.Restore(&rec, now)
		rec.CurrentDelay = s.policy.Clamp(rec.CurrentDelay)
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		o := s.newOrigin(rec.Origin)
		o.health = rec
		s.origins[rec.Origin] = o
		loaded++

		if rec.BreakerState != model.BreakerClosed {
			s.logger.Infow("msg", "restored open breaker",
				"origin", rec.Origin,
				"opened_at", rec.BreakerOpenedAt)
		}
	}

	return loaded, nil
}

// acquire returns the handle for origin and marks it in use so the janitor leaves it alone.
func (s *OriginStore) acquire(origin string) *Origin {
	s.mu.RLock()
	o, ok := s.origins[origin]
	if ok {
		o.refs.Add(1)
	}
	s.mu.RUnlock()
	if ok {
		return o
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o = s.getOrCreateLocked(origin)
	o.refs.Add(1)
	return o
}

func (s *OriginStore) release(o *Origin) {
	o.refs.Add(-1)
}

func (s *OriginStore) admit(o *Origin, now time.Time) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return s.breaker.Admit(&o.health, now)
}

func (s *OriginStore) abandonTrial(o *Origin) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return s.breaker.AbandonTrial(&o.health)
}

// pendingDelay is how long the next request to o must still wait.
// An origin that never completed a request does not wait.
func (s *OriginStore) pendingDelay(o *Origin, now time.Time) time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.health.LastRequestAt.IsZero() {
		return 0
	}
	wait := o.health.LastRequestAt.Add(o.health.CurrentDelay).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

func (s *OriginStore) retryAfter(o *Origin, now time.Time) time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return s.breaker.RetryAfter(&o.health, now)
}

func (s *OriginStore) record(o *Origin, outcome model.Outcome, now time.Time) Transition {
	o.mu.Lock()
	h := &o.health

	h.TotalRequests++
	switch outcome {
	case model.OutcomeSuccess:
		h.TotalSuccesses++
		h.ConsecutiveFailures = 0
	case model.OutcomeBlocked:
		h.TotalBlocked++
		h.ConsecutiveFailures++
	case model.OutcomeRateLimited:
		h.TotalRateLimited++
		h.ConsecutiveFailures++
	default:
		h.TotalOtherErrors++
		h.ConsecutiveFailures++
	}
	h.LastRequestAt = now
	h.CurrentDelay = s.policy.Next(h.CurrentDelay, outcome)

	tr := s.breaker.OnOutcome(h, outcome, now)
	if tr.Recovered() {
		h.CurrentDelay = s.policy.Min
	}

	if o.recent != nil {
		o.recent.add(outcome == model.OutcomeSuccess)
	}
	snap := *h
	o.mu.Unlock()

	s.writer.Put(snap)
	return tr
}

func (s *OriginStore) getOrCreateLocked(origin string) *Origin {
	if o, ok := s.origins[origin]; ok {
		return o
	}
	o := s.newOrigin(origin)
	o.health = model.OriginHealth{
		Origin:       origin,
		CurrentDelay: s.policy.Min,
		BreakerState: model.BreakerClosed,
		CreatedAt:    s.now(),
	}
	s.origins[origin] = o
	return o
}

func (s *OriginStore) newOrigin(origin string) *Origin {
	o := &Origin{
		key:  origin,
		gate: make(chan struct{}, 1),
	}
	if s.recentWindow > 0 {
		o.recent = newOutcomeRing(s.recentWindow)
	}
	return o
}

// evictable must be called with the store lock held for writing, which keeps
// acquire from taking a new reference in between.
func evictable(o *Origin, cutoff time.Time) bool {
	if o.refs.Load() > 0 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.health.BreakerState == model.BreakerClosed && o.health.LastSeen().Before(cutoff)
}

// outcomeRing keeps the success flag of the latest N outcomes.
type outcomeRing struct {
	buf  []bool
	next int
	size int
}

func newOutcomeRing(n int) *outcomeRing {
	return &outcomeRing{buf: make([]bool, n)}
}

func (r *outcomeRing) add(success bool) {
	r.buf[r.next] = success
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

func (r *outcomeRing) counts() (successes, total int) {
	for i := 0; i < r.size; i++ {
		if r.buf[i] {
			successes++
		}
	}
	return successes, r.size
}
