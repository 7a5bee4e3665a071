package scheduler

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/types"
)

// AutopayService is the slice of SubscriptionService the runner needs —
// kept as an interface so this package never imports internal/service
// (which in turn imports internal/store, internal/panel, internal/notify
// — scheduler only needs this one call).
type AutopayService interface {
	Autopay(ctx context.Context, userID string) error
}

// EventRecorder is the slice of EventLogService every worker that appends
// audit rows needs, kept as an interface for the same reason as
// AutopayService above — avoids pulling internal/service's full dependency
// graph into internal/scheduler just to call Record.
type EventRecorder interface {
	Record(ctx context.Context, t types.SubscriptionEventType, userID, subscriptionID, transactionID string, amount types.Kopeks, extra types.Metadata)
	CountByType(ctx context.Context, t types.SubscriptionEventType, from, to time.Time) (int, error)
}

// AutopayRunner charges the wallet for every subscription whose autopay
// window has opened (§4.7 "Autopay runner"), grounded on
// original_source/autopay_service.py's periodic due-subscription sweep.
// Each due subscription goes through SubscriptionService.Autopay, which
// already owns the success/failure notification split (§4.4 "autopay").
type AutopayRunner struct {
	subscriptions subscription.Repository
	service       AutopayService
	logger        *logger.Logger
	interval      time.Duration
}

func NewAutopayRunner(subs subscription.Repository, svc AutopayService, log *logger.Logger, cfg *config.Configuration) *AutopayRunner {
	return &AutopayRunner{subscriptions: subs, service: svc, logger: log, interval: cfg.Scheduler.AutopayInterval}
}

func (r *AutopayRunner) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *AutopayRunner) tick(ctx context.Context) {
	due, err := r.subscriptions.ListAutopayDue(ctx, time.Now().UTC())
	if err != nil {
		r.logger.WithContext(ctx).Errorw("autopay runner failed to list due subscriptions", "error", err)
		return
	}

	for _, sub := range due {
		if err := r.service.Autopay(ctx, sub.UserID); err != nil {
			r.logger.WithContext(ctx).Warnw("autopay attempt failed", "user_id", sub.UserID, "error", err)
		}
	}
	r.logger.WithContext(ctx).Infow("autopay runner tick complete", "due", len(due))
}
