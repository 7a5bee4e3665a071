package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/user"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
)

// ExpiryNotifier warns users whose non-trial subscription is about to
// expire (§4.7 "Expiry notifier"), grounded on
// original_source/subscription_monitor.py's _check_expiring_subscriptions.
// A warning is sent on every tick at which the days left, rounded to the
// nearest whole day, equal a configured warning day; sent warnings are not
// recorded, so the same threshold can be warned about on more than one tick.
type ExpiryNotifier struct {
	subscriptions subscription.Repository
	users         user.Repository
	bus           *notify.Bus
	logger        *logger.Logger
	interval      time.Duration
	warningDays   []int
}

func NewExpiryNotifier(subs subscription.Repository, users user.Repository, bus *notify.Bus, log *logger.Logger, cfg *config.Configuration) *ExpiryNotifier {
	return &ExpiryNotifier{
		subscriptions: subs,
		users:         users,
		bus:           bus,
		logger:        log,
		interval:      cfg.Scheduler.ExpiryNotifierInterval,
		warningDays:   cfg.Scheduler.AutopayWarningDays,
	}
}

func (n *ExpiryNotifier) Run(ctx context.Context) {
	if n.interval <= 0 {
		return
	}
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.tick(ctx)
		}
	}
}

func (n *ExpiryNotifier) tick(ctx context.Context) {
	now := time.Now().UTC()
	maxWarning := 0
	for _, d := range n.warningDays {
		if d > maxWarning {
			maxWarning = d
		}
	}
	if maxWarning == 0 {
		maxWarning = 7
	}

	expiring, err := n.subscriptions.ListExpiringWithin(ctx, now, now.Add(time.Duration(maxWarning)*24*time.Hour))
	if err != nil {
		n.logger.WithContext(ctx).Errorw("expiry notifier failed to list expiring subscriptions", "error", err)
		return
	}

	sent := 0
	for _, sub := range expiring {
		daysLeft := int(math.Round(sub.EndDate.Sub(now).Hours() / 24))
		if !matchesWarningDay(daysLeft, n.warningDays) {
			continue
		}
		u, err := n.users.GetByID(ctx, sub.UserID)
		if err != nil {
			n.logger.WithContext(ctx).Warnw("expiry notifier could not resolve user", "user_id", sub.UserID, "error", err)
			continue
		}
		n.bus.NotifyUser(ctx, u.TelegramID, notify.Message{
			Event: "subscription_expiring",
			Text:  fmt.Sprintf("your subscription expires in %d day(s)", daysLeft),
			Extra: map[string]string{"days_left": fmt.Sprintf("%d", daysLeft)},
		})
		sent++
	}
	n.logger.WithContext(ctx).Infow("expiry notifier tick complete", "candidates", len(expiring), "warnings_sent", sent)
}

func matchesWarningDay(daysLeft int, warningDays []int) bool {
	for _, d := range warningDays {
		if daysLeft == d {
			return true
		}
	}
	return false
}
