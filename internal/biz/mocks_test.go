package biz

import (
	"context"
	"os"
	"sync"
	"time"

	"ScoutBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/mock"
)

// MockHealthRepo is a mock implementation of HealthRepo for testing.
type MockHealthRepo struct {
	mock.Mock
}

func (m *MockHealthRepo) LoadAll(ctx context.Context) ([]*model.OriginHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OriginHealth), args.Error(1)
}

func (m *MockHealthRepo) Save(ctx context.Context, health *model.OriginHealth) error {
	args := m.Called(ctx, health)
	return args.Error(0)
}

func (m *MockHealthRepo) Delete(ctx context.Context, origin string) error {
	args := m.Called(ctx, origin)
	return args.Error(0)
}

// MockAuditLogger is a mock implementation of AuditLogger for testing.
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogBreakerTransition(ctx context.Context, origin string, from, to model.BreakerState, reason string) {
	m.Called(ctx, origin, from, to, reason)
}

func (m *MockAuditLogger) LogOriginEvicted(ctx context.Context, origin string, lastSeen time.Time) {
	m.Called(ctx, origin, lastSeen)
}

// MockBreakerNotifier is a mock implementation of BreakerNotifier for testing.
type MockBreakerNotifier struct {
	mock.Mock
}

func (m *MockBreakerNotifier) NotifyBreakerOpened(ctx context.Context, event *model.BreakerOpenedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBreakerNotifier) NotifyBreakerRecovered(ctx context.Context, event *model.BreakerRecoveredEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// fakeMetrics records what the governor reports.
type fakeMetrics struct {
	mu            sync.Mutex
	outcomes      map[model.Outcome]int
	shortCircuits int
	waits         int
	transitions   []string
	forgotten     []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: make(map[model.Outcome]int)}
}

func (f *fakeMetrics) ObserveOutcome(_ string, outcome model.Outcome, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[outcome]++
}

func (f *fakeMetrics) ObserveShortCircuit(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortCircuits++
}

func (f *fakeMetrics) ObserveWait(string, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
}

func (f *fakeMetrics) ObserveTransition(_ string, from, to model.BreakerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, from.String()+"->"+to.String())
}

func (f *fakeMetrics) SetOriginState(string, model.BreakerState, time.Duration) {}

func (f *fakeMetrics) ForgetOrigin(origin string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, origin)
}

func (f *fakeMetrics) transitionLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transitions...)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLogger() log.Logger {
	return log.NewStdLogger(os.Stdout)
}

// testSettings uses millisecond delays so tests stay fast.
func testSettings() Settings {
	return Settings{
		Enabled:           true,
		MinDelay:          time.Millisecond,
		MaxDelay:          40 * time.Millisecond,
		DecayFactor:       0.5,
		GrowthFactor:      2,
		ErrorGrowthFactor: 1.5,
		FailureThreshold:  3,
		OpenTimeout:       50 * time.Millisecond,
		RequestTimeout:    time.Second,
		RecentWindow:      10,
	}
}

func newTestStore(settings Settings) *OriginStore {
	return NewOriginStore(settings, nil, testLogger())
}

// newManualWriter returns a writer without its flush goroutine; tests call Flush.
func newManualWriter(repo HealthRepo) *HealthWriter {
	return &HealthWriter{
		repo:    repo,
		logger:  log.NewHelper(testLogger()),
		pending: make(map[string]model.OriginHealth),
		deletes: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
	}
}
