package data

import (
	"context"
	"fmt"
	"time"

	"ScoutBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OriginHealthRecord is the GORM model for the origin_health table.
type OriginHealthRecord struct {
	Origin              string     `gorm:"column:origin;type:varchar(255);primaryKey"`
	TotalRequests       uint64     `gorm:"column:total_requests;not null;default:0"`
	TotalSuccesses      uint64     `gorm:"column:total_successes;not null;default:0"`
	TotalBlocked        uint64     `gorm:"column:total_blocked;not null;default:0"`
	TotalRateLimited    uint64     `gorm:"column:total_rate_limited;not null;default:0"`
	TotalOtherErrors    uint64     `gorm:"column:total_other_errors;not null;default:0"`
	CurrentDelayMs      int64      `gorm:"column:current_delay_ms;not null"`
	ConsecutiveFailures int        `gorm:"column:consecutive_failures;not null;default:0"`
	BreakerState        string     `gorm:"column:breaker_state;type:varchar(16);not null;default:closed"`
	BreakerOpenedAt     *time.Time `gorm:"column:breaker_opened_at"`
	LastRequestAt       *time.Time `gorm:"column:last_request_at;index"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (OriginHealthRecord) TableName() string {
	return "origin_health"
}

// MySQLHealthRepo persists origin records in MySQL through GORM.
type MySQLHealthRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewMySQLHealthRepo creates the MySQL repo. It returns nil when db is nil.
func NewMySQLHealthRepo(db *gorm.DB, logger log.Logger) *MySQLHealthRepo {
	if db == nil {
		return nil
	}
	return &MySQLHealthRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// LoadAll reads every stored record.
func (r *MySQLHealthRepo) LoadAll(ctx context.Context) ([]*model.OriginHealth, error) {
	var rows []OriginHealthRecord
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load origin records: %w", err)
	}

	out := make([]*model.OriginHealth, 0, len(rows))
	for i := range rows {
		h, err := rows[i].toModel()
		if err != nil {
			r.logger.Warnw("msg", "skipping corrupt origin record", "origin", rows[i].Origin, "error", err)
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// Save upserts the record.
func (r *MySQLHealthRepo) Save(ctx context.Context, h *model.OriginHealth) error {
	row := newOriginHealthRecord(h)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "origin"}},
			DoUpdates: clause.AssignmentColumns(originHealthUpdateColumns),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save origin record: %w", err)
	}
	return nil
}

// Delete removes the record. Deleting a missing origin is not an error.
func (r *MySQLHealthRepo) Delete(ctx context.Context, origin string) error {
	if err := r.db.WithContext(ctx).Where("origin = ?", origin).Delete(&OriginHealthRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete origin record: %w", err)
	}
	return nil
}

var originHealthUpdateColumns = []string{
	"total_requests",
	"total_successes",
	"total_blocked",
	"total_rate_limited",
	"total_other_errors",
	"current_delay_ms",
	"consecutive_failures",
	"breaker_state",
	"breaker_opened_at",
	"last_request_at",
	"updated_at",
}

func newOriginHealthRecord(h *model.OriginHealth) *OriginHealthRecord {
	return &OriginHealthRecord{
		Origin:              h.Origin,
		TotalRequests:       h.TotalRequests,
		TotalSuccesses:      h.TotalSuccesses,
		TotalBlocked:        h.TotalBlocked,
		TotalRateLimited:    h.TotalRateLimited,
		TotalOtherErrors:    h.TotalOtherErrors,
		CurrentDelayMs:      h.CurrentDelay.Milliseconds(),
		ConsecutiveFailures: h.ConsecutiveFailures,
		BreakerState:        h.BreakerState.String(),
		BreakerOpenedAt:     timePtr(h.BreakerOpenedAt),
		LastRequestAt:       timePtr(h.LastRequestAt),
		CreatedAt:           h.CreatedAt,
	}
}

func (r *OriginHealthRecord) toModel() (*model.OriginHealth, error) {
	state, err := model.ParseBreakerState(r.BreakerState)
	if err != nil {
		return nil, err
	}
	return &model.OriginHealth{
		Origin:              r.Origin,
		TotalRequests:       r.TotalRequests,
		TotalSuccesses:      r.TotalSuccesses,
		TotalBlocked:        r.TotalBlocked,
		TotalRateLimited:    r.TotalRateLimited,
		TotalOtherErrors:    r.TotalOtherErrors,
		CurrentDelay:        time.Duration(r.CurrentDelayMs) * time.Millisecond,
		ConsecutiveFailures: r.ConsecutiveFailures,
		BreakerState:        state,
		BreakerOpenedAt:     timeValue(r.BreakerOpenedAt),
		LastRequestAt:       timeValue(r.LastRequestAt),
		CreatedAt:           r.CreatedAt,
	}, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
