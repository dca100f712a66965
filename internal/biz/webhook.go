package biz

import (
	"context"

	"ScoutBot/internal/model"
)

// BreakerNotifier delivers breaker events to the operator channel.
type BreakerNotifier interface {
	// NotifyBreakerOpened is called when an origin trips or a trial fails
	NotifyBreakerOpened(ctx context.Context, event *model.BreakerOpenedEvent) error

	// NotifyBreakerRecovered is called when a trial closes the breaker again
	NotifyBreakerRecovered(ctx context.Context, event *model.BreakerRecoveredEvent) error
}
