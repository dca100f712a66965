package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ScoutBot/internal/model"
	storeerrors "ScoutBot/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

const healthFlushTimeout = 5 * time.Second

// HealthWriter writes origin records through to a HealthRepo in the background.
// Updates for the same origin coalesce, so Put never blocks on storage and the
// repo always receives the newest record.
type HealthWriter struct {
	repo   HealthRepo
	logger *log.Helper

	mu      sync.Mutex
	pending map[string]model.OriginHealth
	deletes map[string]struct{}

	signal    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHealthWriter creates a writer and starts its flush goroutine.
// A nil repo yields a writer whose methods do nothing (persistence disabled).
func NewHealthWriter(repo HealthRepo, logger log.Logger) (*HealthWriter, func()) {
	w := &HealthWriter{
		repo:    repo,
		logger:  log.NewHelper(logger),
		pending: make(map[string]model.OriginHealth),
		deletes: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if repo == nil {
		w.logger.Info("origin health persistence disabled")
		close(w.done)
		return w, func() {}
	}

	go w.run()
	return w, w.Close
}

// Enabled reports whether records are persisted at all.
func (w *HealthWriter) Enabled() bool {
	return w != nil && w.repo != nil
}

// LoadAll reads every persisted record.
func (w *HealthWriter) LoadAll(ctx context.Context) ([]*model.OriginHealth, error) {
	if !w.Enabled() {
		return nil, nil
	}
	return w.repo.LoadAll(ctx)
}

// Put queues the newest record of an origin for saving.
func (w *HealthWriter) Put(h model.OriginHealth) {
	if !w.Enabled() {
		return
	}
	w.mu.Lock()
	w.pending[h.Origin] = h
	delete(w.deletes, h.Origin)
	w.mu.Unlock()
	w.notify()
}

// Delete queues removal of an origin's record.
func (w *HealthWriter) Delete(origin string) {
	if !w.Enabled() {
		return
	}
	w.mu.Lock()
	delete(w.pending, origin)
	w.deletes[origin] = struct{}{}
	w.mu.Unlock()
	w.notify()
}

// Flush writes everything queued so far.
func (w *HealthWriter) Flush(ctx context.Context) error {
	if !w.Enabled() {
		return nil
	}

	w.mu.Lock()
	saves := w.pending
	deletes := w.deletes
	w.pending = make(map[string]model.OriginHealth)
	w.deletes = make(map[string]struct{})
	w.mu.Unlock()

	var errs []error
	for origin, h := range saves {
		h := h
		if err := w.repo.Save(ctx, &h); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", origin, err))
		}
	}
	for origin := range deletes {
		if err := w.repo.Delete(ctx, origin); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", origin, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops the flush goroutine after a final flush.
func (w *HealthWriter) Close() {
	if !w.Enabled() {
		return
	}
	w.closeOnce.Do(func() {
		close(w.stop)
		<-w.done
	})
}

func (w *HealthWriter) notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *HealthWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.signal:
			w.flushLogged()
		case <-w.stop:
			w.flushLogged()
			w.logger.Info("origin health writer stopped")
			return
		}
	}
}

func (w *HealthWriter) flushLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), healthFlushTimeout)
	defer cancel()

	// Storage failures degrade to memory-only tracking; the next update rewrites the record.
	if err := w.Flush(ctx); err != nil {
		se := storeerrors.ClassifyStoreError(err)
		w.logger.Warnw("msg", "failed to persist origin health (degraded mode)",
			"error", err,
			"error_type", se.Type.String(),
			"retryable", se.Retryable())
	}
}
