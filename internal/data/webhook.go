package data

import (
	"context"

	"ScoutBot/internal/model"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// NoopNotifier implements biz.BreakerNotifier by logging events only.
// Chat delivery of breaker alerts is handled outside this service.
type NoopNotifier struct {
	logger *zlog.LogHelper
}

// NewNoopNotifier creates a new log-only notifier
func NewNoopNotifier(logger log.Logger) *NoopNotifier {
	return &NoopNotifier{
		logger: zlog.NewLogHelper(logger),
	}
}

// NotifyBreakerOpened logs the opened event
func (n *NoopNotifier) NotifyBreakerOpened(ctx context.Context, event *model.BreakerOpenedEvent) error {
	n.logger.Breaker("origin breaker opened",
		"origin", event.Origin,
		"state", model.BreakerOpen.String(),
		"consecutive_failures", event.ConsecutiveFailures,
		"last_outcome", event.LastOutcome.String(),
		"current_delay", event.CurrentDelay,
		"opened_at", event.OpenedAt,
		"from_trial", event.FromTrial)
	return nil
}

// NotifyBreakerRecovered logs the recovered event
func (n *NoopNotifier) NotifyBreakerRecovered(ctx context.Context, event *model.BreakerRecoveredEvent) error {
	n.logger.Success("origin breaker recovered",
		"origin", event.Origin,
		"state", model.BreakerClosed.String(),
		"opened_at", event.OpenedAt,
		"recover_time", event.RecoverTime)
	return nil
}
