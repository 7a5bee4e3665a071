// Package scheduler is the Scheduler Fleet (C7): background workers that
// drive time-based lifecycle transitions the chat UI never triggers
// directly — expiry warnings, autopay, trial cleanup, reporting, log
// rotation, receipt draining, and maintenance-flag watching (§4.7).
//
// Each worker is a func(ctx context.Context) launched as its own goroutine
// and suspended only at a time.Ticker/time.Timer between iterations,
// mirroring original_source/subscription_monitor.go's asyncio.create_task
// loops (§5: "single-process cooperative goroutines with explicit sleep
// suspension points", not a durable workflow engine — see DESIGN.md for why
// go.temporal.io/sdk, present in the teacher's go.mod, is not wired here).
package scheduler

import (
	"context"
	"sync"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/logger"
)

// worker is one fleet member: a name (for logs) and the loop function
// itself.
type worker struct {
	name string
	run  func(ctx context.Context)
}

// Fleet owns every scheduled worker and the goroutines that run them. It is
// started and stopped by internal/broker's fx.Lifecycle hooks, never by the
// workers themselves (unlike the source's self-managed is_running/start/stop
// per service, flattened here into one aggregate per REDESIGN FLAGS).
type Fleet struct {
	workers []worker
	logger  *logger.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFleet wires every worker named in SchedulerConfig against its
// dependencies. Any worker whose cadence is unset (zero Duration) is
// skipped — this lets tests or a minimal deployment opt individual workers
// out without a separate enabled flag per worker.
func NewFleet(
	cfg *config.Configuration,
	log *logger.Logger,
	expiry *ExpiryNotifier,
	autopay *AutopayRunner,
	trialCleanup *TrialCleanup,
	reportDispatch *ReportDispatcher,
	logRotation *LogRotation,
	receiptDrain *ReceiptDrainer,
	maintenance *MaintenanceWatcher,
) *Fleet {
	f := &Fleet{logger: log}
	f.workers = []worker{
		{name: "expiry_notifier", run: expiry.Run},
		{name: "autopay_runner", run: autopay.Run},
		{name: "trial_cleanup", run: trialCleanup.Run},
		{name: "report_dispatcher", run: reportDispatch.Run},
		{name: "log_rotation", run: logRotation.Run},
		{name: "receipt_drainer", run: receiptDrain.Run},
		{name: "maintenance_watcher", run: maintenance.Run},
	}
	return f
}

// Start launches every worker's goroutine. Safe to call once; a second call
// before Stop is a no-op guard left to the caller (internal/broker only
// ever calls it from one fx.Lifecycle OnStart hook).
func (f *Fleet) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	for _, w := range f.workers {
		w := w
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.logger.Infow("scheduler worker starting", "worker", w.name)
			w.run(runCtx)
			f.logger.Infow("scheduler worker stopped", "worker", w.name)
		}()
	}
}

// Stop cancels every worker's context and waits for each loop to observe
// cancellation at its next ticker/timer check, never mid-transaction (§5).
func (f *Fleet) Stop(ctx context.Context) {
	if f.cancel == nil {
		return
	}
	f.cancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		f.logger.Warnw("scheduler fleet stop timed out waiting for workers")
	}
}
