package scheduler

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/user"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/types"
)

// TrialCleanup sweeps trials past their end date plus grace period and
// disables them, owning the trial-expiry notification exclusively (§9 Open
// Question 2: "not the expiry notifier, to avoid double notification"),
// grounded on original_source/subscription_monitor.py's
// delete_expired_trial_subscriptions/_check_expired_trial_subscriptions.
type TrialCleanup struct {
	subscriptions subscription.Repository
	users         user.Repository
	bus           *notify.Bus
	events        EventRecorder
	logger        *logger.Logger
	interval      time.Duration
	graceHours    int
}

func NewTrialCleanup(subs subscription.Repository, users user.Repository, bus *notify.Bus, events EventRecorder, log *logger.Logger, cfg *config.Configuration) *TrialCleanup {
	return &TrialCleanup{
		subscriptions: subs,
		users:         users,
		bus:           bus,
		events:        events,
		logger:        log,
		interval:      cfg.Scheduler.TrialCleanupInterval,
		graceHours:    cfg.Scheduler.TrialExpiredGraceHours,
	}
}

func (c *TrialCleanup) Run(ctx context.Context) {
	if c.interval <= 0 {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *TrialCleanup) tick(ctx context.Context) {
	expired, err := c.subscriptions.ListExpiredTrials(ctx, time.Now().UTC(), c.graceHours)
	if err != nil {
		c.logger.WithContext(ctx).Errorw("trial cleanup failed to list expired trials", "error", err)
		return
	}

	for _, sub := range expired {
		sub.Status = types.SubscriptionStatusDisabled
		if err := c.subscriptions.Update(ctx, sub); err != nil {
			c.logger.WithContext(ctx).Errorw("trial cleanup failed to disable trial", "user_id", sub.UserID, "error", err)
			continue
		}

		u, err := c.users.GetByID(ctx, sub.UserID)
		if err != nil {
			if !ierr.Is(err, ierr.ErrNotFound) {
				c.logger.WithContext(ctx).Warnw("trial cleanup could not resolve user", "user_id", sub.UserID, "error", err)
			}
			continue
		}
		c.events.Record(ctx, types.EventTrialExpired, sub.UserID, sub.ID, "", 0, nil)
		c.bus.NotifyUser(ctx, u.TelegramID, notify.Message{
			Event: string(types.EventTrialExpired),
			Text:  "your trial has ended",
		})
	}
	c.logger.WithContext(ctx).Infow("trial cleanup tick complete", "disabled", len(expired))
}
