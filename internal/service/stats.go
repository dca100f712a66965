package service

import (
	"context"
	"errors"
	"strings"

	"ScoutBot/internal/biz"
	"ScoutBot/internal/origin"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const defaultBlockStatsTop = 10

// ResetReply is returned by ResetOrigin.
type ResetReply struct {
	Origin string `json:"origin"`
	State  string `json:"state"`
}

// AlertsReply lists origins the blocking monitor flagged.
type AlertsReply struct {
	Alerts []biz.Alert `json:"alerts"`
}

// StatsService serves origin statistics and operator actions.
type StatsService struct {
	governor *biz.RequestGovernor
	reporter *biz.StatsReporter
	monitor  *biz.BlockingMonitor
	logger   *log.Helper
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(governor *biz.RequestGovernor, reporter *biz.StatsReporter, monitor *biz.BlockingMonitor, logger log.Logger) *StatsService {
	return &StatsService{
		governor: governor,
		reporter: reporter,
		monitor:  monitor,
		logger:   log.NewHelper(logger),
	}
}

// ListOrigins returns the full statistics report.
func (s *StatsService) ListOrigins(ctx context.Context) (*biz.Report, error) {
	s.logger.WithContext(ctx).Debug("ListOrigins called")
	return s.reporter.Snapshot(), nil
}

// BlockStats renders the operator text summary of the top origins.
func (s *StatsService) BlockStats(ctx context.Context, top int) (string, error) {
	if top < 0 {
		return "", kerrors.BadRequest("INVALID_TOP", "top must not be negative")
	}
	if top == 0 {
		top = defaultBlockStatsTop
	}
	return biz.FormatText(s.reporter.Snapshot(), top), nil
}

// Alerts runs the blocking monitor once.
func (s *StatsService) Alerts(ctx context.Context) (*AlertsReply, error) {
	alerts := s.monitor.Check(ctx)
	if alerts == nil {
		alerts = []biz.Alert{}
	}
	return &AlertsReply{Alerts: alerts}, nil
}

// ResetOrigin closes the breaker of an origin. It accepts an origin key or any URL on it.
func (s *StatsService) ResetOrigin(ctx context.Context, target string) (*ResetReply, error) {
	key, err := originKey(target)
	if err != nil {
		return nil, kerrors.BadRequest("INVALID_ORIGIN", err.Error())
	}

	if err := s.governor.ResetOrigin(ctx, key); err != nil {
		if errors.Is(err, biz.ErrOriginNotFound) {
			return nil, kerrors.NotFound("ORIGIN_NOT_FOUND", "origin "+key+" is not tracked")
		}
		s.logger.WithContext(ctx).Errorw("msg", "failed to reset origin", "origin", key, "error", err)
		return nil, kerrors.InternalServer("RESET_FAILED", err.Error())
	}

	return &ResetReply{Origin: key, State: "closed"}, nil
}

func originKey(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("origin is required")
	}
	if strings.Contains(target, "://") {
		return origin.Resolve(target)
	}
	return origin.Resolve("https://" + target)
}
