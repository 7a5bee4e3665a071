// Package broker is the Glue: it wires every module (C1-C9) into one
// runnable process via go.uber.org/fx, mirroring the teacher's
// cmd/server/main.go fx.Provide/fx.Invoke/fx.Lifecycle structure but
// scoped to what this domain actually runs — one webhook listener and one
// in-process Scheduler Fleet, no Kafka consumer, Temporal worker, or
// Lambda entrypoint, since none of those transports exist in this domain
// (see DESIGN.md).
package broker

import (
	"context"

	"github.com/vpnbroker/broker/internal/api"
	"github.com/vpnbroker/broker/internal/cache"
	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/event"
	"github.com/vpnbroker/broker/internal/domain/receipt"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/domain/user"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/panel"
	"github.com/vpnbroker/broker/internal/payments"
	"github.com/vpnbroker/broker/internal/pricing"
	"github.com/vpnbroker/broker/internal/scheduler"
	"github.com/vpnbroker/broker/internal/service"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/svix"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Module is the full dependency graph. cmd/broker/main.go does nothing but
// fx.New(broker.Module).Run() — every constructor lives here so the graph
// can also be assembled (minus the lifecycle hooks) inside integration
// tests if the repo ever needs one.
var Module = fx.Options(
	fx.Provide(
		provideConfig,
		logger.NewLogger,
		provideStore,
		provideCache,
		providePricingEngine,
		providePanelClient,
	),
	fx.Provide(
		provideSubscriptionRepo,
		provideUserRepo,
		provideTransactionRepo,
		provideReceiptRepo,
		provideEventRepo,
	),
	fx.Provide(
		provideSvixClient,
		provideNotifyBus,
	),
	fx.Provide(
		service.NewEventLogService,
		service.NewSubscriptionService,
		service.NewCheckoutService,
		provideLuckyGameService,
	),
	fx.Provide(
		provideEventRecordFunc,
		provideAutopayService,
		provideEventRecorder,
		payments.NewProcessor,
		provideIngresses,
		provideWebhookHandler,
		api.NewRouter,
	),
	fx.Provide(
		newLoggingFiscalSubmitter,
		scheduler.NewExpiryNotifier,
		scheduler.NewAutopayRunner,
		scheduler.NewTrialCleanup,
		scheduler.NewReportDispatcher,
		scheduler.NewLogRotation,
		scheduler.NewReceiptDrainer,
		scheduler.NewMaintenanceWatcher,
		scheduler.NewFleet,
	),
	fx.Invoke(
		startWebhookServer,
		startSchedulerFleet,
	),
)

func provideConfig() (*config.Configuration, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideStore(log *logger.Logger) *store.Store {
	return store.New(log)
}

func provideCache(cfg *config.Configuration) cache.Cache {
	return cache.NewInMemoryCache(cfg.Cache.Enabled)
}

func providePricingEngine(cfg *config.Configuration) *pricing.Engine {
	return pricing.NewEngine(cfg.Pricing)
}

func providePanelClient(cfg *config.Configuration, log *logger.Logger) panel.Client {
	return panel.NewHTTPClient(cfg.Panel, log)
}

func provideSubscriptionRepo(st *store.Store) subscription.Repository { return st.Subscriptions() }
func provideUserRepo(st *store.Store) user.Repository                 { return st.Users() }
func provideTransactionRepo(st *store.Store) transaction.Repository   { return st.Transactions() }
func provideReceiptRepo(st *store.Store) receipt.Repository           { return st.Receipts() }
func provideEventRepo(st *store.Store) event.Repository               { return st.Events() }

func provideSvixClient(cfg *config.Configuration) (*svix.Client, error) {
	return svix.NewClient(cfg)
}

// provideNotifyBus wires notify.LoggingChannel as both the chat gateway
// and the admin channel — the safe default when no real Telegram bot
// client is implemented (§1 Non-goals) — and adds the Svix channel as an
// extra fan-out target whenever NotifyConfig.Svix.Enabled.
func provideNotifyBus(cfg *config.Configuration, log *logger.Logger, svixClient *svix.Client) (*notify.Bus, error) {
	chat := notify.NewLoggingChannel(log, "chat")
	admin := notify.NewLoggingChannel(log, "admin")

	var extra []notify.Channel
	if cfg.Notify.Svix.Enabled {
		svixChannel, err := notify.NewSvixChannel(context.Background(), cfg, svixClient)
		if err != nil {
			return nil, err
		}
		extra = append(extra, svixChannel)
	}

	return notify.NewBus(log, chat, admin, extra...), nil
}

func provideLuckyGameService(st *store.Store, events *service.EventLogService, bus *notify.Bus, cfg *config.Configuration) *service.LuckyGameService {
	return service.NewLuckyGameService(st, events, bus, cfg.LuckyGame)
}

// provideEventRecordFunc adapts *service.EventLogService.Record into the
// bare func signature internal/payments.NewProcessor expects, so payments
// never has to import internal/service directly (avoiding an import cycle
// with the rest of the Glue — the same pattern internal/scheduler uses for
// its local EventRecorder interface, see DESIGN.md).
func provideEventRecordFunc(events *service.EventLogService) func(ctx context.Context, t types.SubscriptionEventType, userID, subscriptionID, transactionID string, amount types.Kopeks, extra types.Metadata) {
	return events.Record
}

// provideAutopayService adapts *service.SubscriptionService to the
// scheduler package's AutopayService interface the same way.
func provideAutopayService(sub *service.SubscriptionService) scheduler.AutopayService {
	return sub
}

// provideEventRecorder adapts *service.EventLogService to the scheduler
// package's EventRecorder interface, used by TrialCleanup and
// ReportDispatcher.
func provideEventRecorder(events *service.EventLogService) scheduler.EventRecorder {
	return events
}

func provideIngresses(cfg *config.Configuration) []payments.Ingress {
	ingresses := []payments.Ingress{payments.NewManualIngress()}
	if cfg.Payments.StripeWebhookSecret != "" {
		ingresses = append(ingresses, payments.NewStripeIngress(cfg.Payments.StripeWebhookSecret))
	}
	if cfg.Payments.StarsEnabled {
		ingresses = append(ingresses, payments.NewStarsIngress())
	}
	return ingresses
}

func provideWebhookHandler(processor *payments.Processor, log *logger.Logger, ingresses []payments.Ingress) *api.WebhookHandler {
	return api.NewWebhookHandler(processor, log, ingresses...)
}

// startWebhookServer registers the gin.Engine's listener against fx's
// lifecycle, mirroring the teacher's startAPIServer.
func startWebhookServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Configuration, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting webhook listener", "address", cfg.Server.WebhookAddress)
			go func() {
				if err := router.Run(cfg.Server.WebhookAddress); err != nil {
					log.Fatalf("webhook listener stopped: %v", err)
				}
			}()
			return nil
		},
	})
}

// startSchedulerFleet registers the Fleet's Start/Stop against fx's
// lifecycle — the fleet itself never starts its own goroutines at
// construction time, only when OnStart fires (§5 single-process
// cooperative goroutines, explicit start/stop owned by the process, not
// the worker).
func startSchedulerFleet(lc fx.Lifecycle, fleet *scheduler.Fleet) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			fleet.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			fleet.Stop(ctx)
			return nil
		},
	})
}
