package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vpnbroker/broker/internal/cache"
	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/panel"
)

// MaintenanceWatcher polls panel health and flips the bot into maintenance
// mode when the panel is unreachable (§4.7 "Maintenance flag watcher",
// generalizing original_source/app/services/server_status_service.py's
// per-node page into one panel-wide signal per §4.13). The last observed
// HealthStatus is cached under cache.PrefixPanelHealth so chat handlers and
// an admin status query can read it without polling the panel themselves.
type MaintenanceWatcher struct {
	panel    panel.Client
	cache    cache.Cache
	bus      *notify.Bus
	logger   *logger.Logger
	interval time.Duration
	active   atomic.Bool
}

func NewMaintenanceWatcher(client panel.Client, c cache.Cache, bus *notify.Bus, log *logger.Logger, cfg *config.Configuration) *MaintenanceWatcher {
	return &MaintenanceWatcher{
		panel:    client,
		cache:    c,
		bus:      bus,
		logger:   log,
		interval: cfg.Scheduler.MaintenanceWatchInterval,
	}
}

// Active reports whether the bot is currently in maintenance mode — chat
// command handlers consult this to honor only admin commands while set.
func (w *MaintenanceWatcher) Active() bool {
	return w.active.Load()
}

func (w *MaintenanceWatcher) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *MaintenanceWatcher) tick(ctx context.Context) {
	status, err := w.panel.HealthCheck(ctx)
	healthy := err == nil && status != nil && status.Healthy
	if status == nil {
		status = &panel.HealthStatus{Healthy: false, Message: "health check error"}
		if err != nil {
			status.Message = err.Error()
		}
	}

	w.cache.Set(ctx, cache.GenerateKey(cache.PrefixPanelHealth), status, w.interval)

	wasActive := w.active.Swap(!healthy)
	if !healthy && !wasActive {
		w.logger.WithContext(ctx).Warnw("panel unhealthy, entering maintenance mode", "message", status.Message)
		w.bus.NotifyAdmin(ctx, notify.Message{Event: "maintenance_mode_entered", Text: "panel health check failed, entering maintenance mode: " + status.Message})
	} else if healthy && wasActive {
		w.logger.WithContext(ctx).Infow("panel healthy again, leaving maintenance mode")
		w.bus.NotifyAdmin(ctx, notify.Message{Event: "maintenance_mode_cleared", Text: "panel health check recovered, leaving maintenance mode"})
	}
}
