package data

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ScoutBot/internal/conf"
	"ScoutBot/internal/model"
	storeerrors "ScoutBot/pkg/errors"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const defaultAuditQueueSize = 1000

// BreakerAuditLog is the GORM model for the origin_audit_logs table
type BreakerAuditLog struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	Origin     string    `gorm:"column:origin;type:varchar(255);not null;index"`
	ActionType string    `gorm:"column:action_type;type:varchar(50);not null"`
	Details    string    `gorm:"column:details;type:json"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (BreakerAuditLog) TableName() string {
	return "origin_audit_logs"
}

// AuditLoggerImpl implements biz.AuditLogger. Events are always logged; they are
// also written to MySQL asynchronously when a database is available.
type AuditLoggerImpl struct {
	db      *gorm.DB
	logChan chan *BreakerAuditLog
	logger  *zlog.LogHelper
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAuditLogger creates a new audit logger with an async write queue.
func NewAuditLogger(c *conf.Data, db *gorm.DB, logger log.Logger) (*AuditLoggerImpl, func()) {
	queueSize := defaultAuditQueueSize
	enabled := true
	if c != nil && c.Audit != nil {
		enabled = c.Audit.Enabled
		if c.Audit.QueueSize > 0 {
			queueSize = c.Audit.QueueSize
		}
	}

	al := &AuditLoggerImpl{
		logger: zlog.NewLogHelper(logger),
	}
	if db == nil || !enabled {
		return al, func() {}
	}

	al.db = db
	al.logChan = make(chan *BreakerAuditLog, queueSize)
	al.wg.Add(1)
	go al.start()

	return al, al.Close
}

// Close drains the queue and stops the writer goroutine.
func (a *AuditLoggerImpl) Close() {
	if a.logChan == nil {
		return
	}
	a.once.Do(func() {
		close(a.logChan)
		a.wg.Wait()
	})
}

func (a *AuditLoggerImpl) start() {
	defer a.wg.Done()
	for event := range a.logChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.db.WithContext(ctx).Create(event).Error
		cancel()
		if err != nil {
			a.logger.Errorw("msg", "failed to write audit log",
				"origin", event.Origin,
				"action_type", event.ActionType,
				"error_type", storeerrors.ClassifyStoreError(err).Type.String(),
				"error", err)
			continue
		}
		a.logger.Database("audit log written", "origin", event.Origin, "action_type", event.ActionType)
	}
}

// LogBreakerTransition logs a breaker state change.
func (a *AuditLoggerImpl) LogBreakerTransition(ctx context.Context, origin string, from, to model.BreakerState, reason string) {
	a.enqueue(origin, transitionAction(from, to), map[string]interface{}{
		"from":   from.String(),
		"to":     to.String(),
		"reason": reason,
		"at":     time.Now().Format(time.RFC3339),
	})
}

// LogOriginEvicted logs the janitor removing a stale origin.
func (a *AuditLoggerImpl) LogOriginEvicted(ctx context.Context, origin string, lastSeen time.Time) {
	a.enqueue(origin, model.AuditEventOriginEvicted, map[string]interface{}{
		"last_seen": lastSeen.Format(time.RFC3339),
	})
}

func (a *AuditLoggerImpl) enqueue(origin, action string, details map[string]interface{}) {
	a.logger.Audit(action, "origin", origin, "details", details)

	if a.logChan == nil {
		return
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit log details", "error", err)
		return
	}

	event := &BreakerAuditLog{
		Origin:     origin,
		ActionType: action,
		Details:    string(detailsJSON),
	}

	select {
	case a.logChan <- event:
	default:
		a.logger.Warnw("msg", "audit log channel full, dropping event",
			"origin", origin,
			"action_type", action)
	}
}

func transitionAction(from, to model.BreakerState) string {
	switch {
	case to == model.BreakerHalfOpen:
		return model.AuditEventBreakerHalfOpen
	case to == model.BreakerOpen:
		return model.AuditEventBreakerOpened
	case from == model.BreakerHalfOpen && to == model.BreakerClosed:
		return model.AuditEventBreakerRecovered
	default:
		return model.AuditEventBreakerReset
	}
}
