package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/types"
)

// ReportDispatcher sends a daily stats report to the admin channel at a
// fixed local time (§4.7 "Report dispatcher"): new trials, new paid
// conversions, active subscription count, and the deposit sum/count for
// the 24h window just closed.
type ReportDispatcher struct {
	subscriptions subscription.Repository
	transactions  transaction.Repository
	events        EventRecorder
	bus           *notify.Bus
	logger        *logger.Logger
	localTime     string
}

func NewReportDispatcher(subs subscription.Repository, txs transaction.Repository, events EventRecorder, bus *notify.Bus, log *logger.Logger, cfg *config.Configuration) *ReportDispatcher {
	return &ReportDispatcher{
		subscriptions: subs,
		transactions:  txs,
		events:        events,
		bus:           bus,
		logger:        log,
		localTime:     cfg.Scheduler.ReportDispatchLocalTime,
	}
}

func (d *ReportDispatcher) Run(ctx context.Context) {
	if d.localTime == "" {
		return
	}
	for {
		if !waitUntilDaily(ctx, d.logger, "report_dispatcher", d.localTime) {
			return
		}
		d.dispatch(ctx)
	}
}

func (d *ReportDispatcher) dispatch(ctx context.Context) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	newTrials, err := d.events.CountByType(ctx, types.EventTrialActivated, from, to)
	if err != nil {
		d.logger.WithContext(ctx).Errorw("report dispatcher failed to count new trials", "error", err)
		return
	}
	newPaid, err := d.events.CountByType(ctx, types.EventSubscriptionPurchased, from, to)
	if err != nil {
		d.logger.WithContext(ctx).Errorw("report dispatcher failed to count new paid subscriptions", "error", err)
		return
	}

	all, err := d.subscriptions.ListAll(ctx)
	if err != nil {
		d.logger.WithContext(ctx).Errorw("report dispatcher failed to list subscriptions", "error", err)
		return
	}
	active := 0
	for _, sub := range all {
		if sub.ActualStatus(to) == types.SubscriptionStatusActive {
			active++
		}
	}

	deposits, err := d.transactions.ListCompletedInRange(ctx, from, to)
	if err != nil {
		d.logger.WithContext(ctx).Errorw("report dispatcher failed to list deposits", "error", err)
		return
	}
	var depositSum types.Kopeks
	depositCount := 0
	for _, tx := range deposits {
		if tx.Type != types.TransactionTypeDeposit {
			continue
		}
		depositSum += tx.AmountKopeks
		depositCount++
	}

	d.bus.NotifyAdmin(ctx, notify.Message{
		Event: "daily_report",
		Text:  fmt.Sprintf("daily report: %d new trials, %d new paid, %d active subscriptions, %d deposits totalling %d kopeks", newTrials, newPaid, active, depositCount, depositSum),
		Extra: map[string]string{
			"new_trials":    fmt.Sprintf("%d", newTrials),
			"new_paid":      fmt.Sprintf("%d", newPaid),
			"active":        fmt.Sprintf("%d", active),
			"deposit_count": fmt.Sprintf("%d", depositCount),
			"deposit_sum":   fmt.Sprintf("%d", depositSum),
		},
	})
	d.logger.WithContext(ctx).Infow("daily report dispatched", "new_trials", newTrials, "new_paid", newPaid, "active", active, "deposit_count", depositCount, "deposit_sum_kopeks", depositSum)
}

