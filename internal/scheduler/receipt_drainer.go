package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/receipt"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
)

// FiscalSubmitter pushes one queued receipt to whatever tax service the
// deployment is registered with. The broker ships no concrete fiscal
// provider (none is named in the source material) — a deployment wires its
// own adapter behind this interface; ReceiptDrainer only owns the queue
// retry schedule.
type FiscalSubmitter interface {
	Submit(ctx context.Context, r *receipt.Receipt) error
}

// ReceiptDrainer retries fiscal receipt submissions with capped attempts
// and exponential backoff (§4.7 "Receipt queue drainer"), using
// cenkalti/backoff/v4 the same way CypheraCorp's HTTP client uses it for
// transport retries — here applied per receipt instead of per request.
type ReceiptDrainer struct {
	receipts    receipt.Repository
	submitter   FiscalSubmitter
	bus         *notify.Bus
	logger      *logger.Logger
	interval    time.Duration
	maxAttempts int
}

func NewReceiptDrainer(receipts receipt.Repository, submitter FiscalSubmitter, bus *notify.Bus, log *logger.Logger, cfg *config.Configuration) *ReceiptDrainer {
	return &ReceiptDrainer{
		receipts:    receipts,
		submitter:   submitter,
		bus:         bus,
		logger:      log,
		interval:    cfg.Scheduler.ReceiptDrainInterval,
		maxAttempts: cfg.Scheduler.ReceiptMaxAttempts,
	}
}

func (d *ReceiptDrainer) Run(ctx context.Context) {
	if d.interval <= 0 {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *ReceiptDrainer) tick(ctx context.Context) {
	pending, err := d.receipts.ListPending(ctx, 50)
	if err != nil {
		d.logger.WithContext(ctx).Errorw("receipt drainer failed to list pending receipts", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	submitted, failed := 0, 0
	for _, r := range pending {
		if d.submitOne(ctx, r) {
			submitted++
		} else {
			failed++
		}
	}

	if failed > 0 {
		d.bus.NotifyAdmin(ctx, notify.Message{
			Event: "receipt_drain_failures",
			Text:  "one or more fiscal receipts failed to submit and will be retried",
		})
	}

	count, err := d.receipts.CountPending(ctx)
	if err == nil && count == 0 && len(pending) > 0 {
		d.bus.NotifyAdmin(ctx, notify.Message{Event: "receipt_queue_drained", Text: "fiscal receipt queue is empty"})
	}

	d.logger.WithContext(ctx).Infow("receipt drainer tick complete", "submitted", submitted, "failed", failed)
}

// submitOne retries the single receipt's submission within this tick using
// a bounded exponential backoff, then records the outcome against the
// queue's own attempt counter (the schedule restarts fresh every tick —
// the persisted Attempts field is what actually caps lifetime retries).
func (d *ReceiptDrainer) submitOne(ctx context.Context, r *receipt.Receipt) bool {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 10 * time.Second
	expBackoff.MaxElapsedTime = 30 * time.Second

	op := func() error {
		return d.submitter.Submit(ctx, r)
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(expBackoff, 3), ctx)); err != nil {
		d.logger.WithContext(ctx).Warnw("fiscal receipt submission failed", "receipt_id", r.ID, "error", err)
		if mErr := d.receipts.RecordAttemptFailure(ctx, r.ID, d.maxAttempts); mErr != nil {
			d.logger.WithContext(ctx).Errorw("receipt drainer failed to record attempt failure", "receipt_id", r.ID, "error", mErr)
		}
		return false
	}

	if err := d.receipts.MarkSubmitted(ctx, r.ID); err != nil {
		d.logger.WithContext(ctx).Errorw("receipt drainer failed to mark receipt submitted", "receipt_id", r.ID, "error", err)
		return false
	}
	return true
}
