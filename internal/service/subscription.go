package service

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/promogroup"
	"github.com/vpnbroker/broker/internal/domain/server"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/domain/user"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/panel"
	"github.com/vpnbroker/broker/internal/pricing"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/shopspring/decimal"
)

// SubscriptionService is the Subscription Service (C4): every lifecycle
// operation from §4.4, each one quote (C1) -> transaction (C2) ->
// panel sync (C3) -> event (C9) -> notification (C8). The panel call
// deliberately runs after the store transaction commits (§4.4 step 6,
// §5 "the panel call is not in the critical section") so a slow or failed
// upstream call never holds the store's single writer lock.
type SubscriptionService struct {
	store  *store.Store
	engine *pricing.Engine
	panel  panel.Client
	events *EventLogService
	bus    *notify.Bus
	cfg    *config.Configuration
	logger *logger.Logger
}

func NewSubscriptionService(
	st *store.Store,
	engine *pricing.Engine,
	panelClient panel.Client,
	events *EventLogService,
	bus *notify.Bus,
	cfg *config.Configuration,
	log *logger.Logger,
) *SubscriptionService {
	return &SubscriptionService{store: st, engine: engine, panel: panelClient, events: events, bus: bus, cfg: cfg, logger: log}
}

func (s *SubscriptionService) promoGroupFor(ctx context.Context, u *user.User) (*promogroup.PromoGroup, error) {
	if u.PromoGroupID != "" {
		return s.store.PromoGroups().Get(ctx, u.PromoGroupID)
	}
	return s.store.PromoGroups().GetDefault(ctx)
}

// resolveServers fetches and validates each requested server id, returning
// both the domain rows (for ConnectedSquads/pricing snapshots) and the
// pricing.SelectedServer shape the engine wants.
func (s *SubscriptionService) resolveServers(ctx context.Context, serverIDs []string) ([]*server.Server, []pricing.SelectedServer, error) {
	servers := make([]*server.Server, 0, len(serverIDs))
	selected := make([]pricing.SelectedServer, 0, len(serverIDs))
	for _, id := range serverIDs {
		sv, err := s.store.Servers().Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !sv.Selectable() {
			return nil, nil, newResourceUnavailableError("server", id)
		}
		servers = append(servers, sv)
		selected = append(selected, pricing.SelectedServer{ServerID: sv.ID, PriceKopeksPerMonth: sv.PriceKopeksPerMonth})
	}
	return servers, selected, nil
}

// snapshotServers builds the SubscriptionServer join rows for the servers
// just purchased/extended, applying the group's per-server discount and
// the period's month count (§4.4 step 4: "paid_price_kopeks = discounted
// monthly x months").
func snapshotServers(subID string, servers []*server.Server, discountPercent, months int, now time.Time) []*subscription.Server {
	rows := make([]*subscription.Server, 0, len(servers))
	for _, sv := range servers {
		paid := sv.PriceKopeksPerMonth.ApplyPercentDiscount(discountPercent) * types.Kopeks(months)
		rows = append(rows, &subscription.Server{
			SubscriptionID:  subID,
			ServerID:        sv.ID,
			PaidPriceKopeks: paid,
			CreatedAt:       now,
		})
	}
	return rows
}

func squadUUIDs(servers []*server.Server) []string {
	out := make([]string, 0, len(servers))
	for _, sv := range servers {
		out = append(out, sv.SquadUUID)
	}
	return out
}

// syncPanel calls fn (a panel.Client operation) and, on failure, logs and
// classifies it rather than propagating — a panel failure after a
// committed mutation is a soft warning, reconciled on the next write
// (§4.4 step 6, Open Question 1).
func (s *SubscriptionService) syncPanel(ctx context.Context, op string, fn func() error) (warning bool) {
	if err := fn(); err != nil {
		s.logger.WithContext(ctx).Warnw("panel sync failed after commit, DB remains authoritative", "op", op, "error", err)
		return true
	}
	return false
}

// CreateTrial implements §4.4 "create_trial" (see S1).
func (s *SubscriptionService) CreateTrial(ctx context.Context, userID string) (*subscription.Subscription, error) {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.HasHadPaidSubscription {
			return newTrialAlreadyUsedError()
		}
		if _, err := s.store.Subscriptions().GetByUserID(ctx, userID); err == nil {
			return newTrialAlreadyUsedError()
		} else if !ierr.Is(err, ierr.ErrNotFound) {
			return err
		}

		sub = &subscription.Subscription{
			ID:              types.GenerateUUIDWithPrefix(types.UUIDPrefixSubscription),
			UserID:          userID,
			Status:          types.SubscriptionStatusActive,
			IsTrial:         true,
			StartDate:       now,
			EndDate:         now.Add(time.Duration(s.cfg.Pricing.TrialDurationDays) * 24 * time.Hour),
			TrafficLimitGB:  s.cfg.Pricing.TrialTrafficGB,
			DeviceLimit:     s.cfg.Pricing.TrialDeviceLimit,
			ConnectedSquads: []string{s.cfg.Panel.TrialSquadUUID},
			BaseModel:       types.NewBaseModel(now),
		}
		if err := sub.Validate(s.cfg.Pricing.MaxDevicesLimit); err != nil {
			return err
		}
		return s.store.Subscriptions().Create(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	var remote *panel.RemoteUser
	s.syncPanel(ctx, "create_trial", func() error {
		var perr error
		remote, perr = s.panel.CreateRemoteUser(ctx, panel.RemoteUserSpec{
			TelegramID:     u.TelegramID,
			SquadUUIDs:     sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB,
			DeviceLimit:    sub.DeviceLimit,
			ExpireAt:       sub.EndDate,
		})
		return perr
	})
	if remote != nil {
		sub.PanelUUID = remote.UUID
		sub.SubscriptionURL = remote.SubscriptionURL
		_ = s.store.Subscriptions().Update(ctx, sub)
	}

	s.events.Record(ctx, types.EventTrialActivated, userID, sub.ID, "", 0, nil)
	s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: string(types.EventTrialActivated), Text: "your trial is active"})
	return sub, nil
}

// PurchaseConfig is the user-chosen configuration for purchase/extend.
type PurchaseConfig struct {
	PeriodDays  int
	TrafficGB   int
	DeviceLimit int
	ServerIDs   []string
}

// Purchase implements §4.4 "purchase" (see S2).
func (s *SubscriptionService) Purchase(ctx context.Context, userID string, cfg PurchaseConfig) (*subscription.Subscription, *pricing.Quote, error) {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription
	var quote *pricing.Quote
	var servers []*server.Server

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		pg, err := s.promoGroupFor(ctx, u)
		if err != nil {
			return err
		}

		var selected []pricing.SelectedServer
		servers, selected, err = s.resolveServers(ctx, cfg.ServerIDs)
		if err != nil {
			return err
		}

		quote, err = s.engine.Quote(&pricing.PriceRequest{
			Action:          pricing.ActionNewSubscription,
			PeriodDays:      cfg.PeriodDays,
			TrafficGB:       cfg.TrafficGB,
			DeviceLimit:     cfg.DeviceLimit,
			SelectedServers: selected,
			PromoGroup:      pg,
		})
		if err != nil {
			return err
		}

		if err := s.store.DebitBalance(ctx, userID, quote.TotalKopeks); err != nil {
			if ierr.Is(err, ierr.ErrInsufficientFunds) {
				return newInsufficientFundsError(int64(quote.TotalKopeks) - int64(u.BalanceKopeks))
			}
			return err
		}

		existing, err := s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil && !ierr.Is(err, ierr.ErrNotFound) {
			return err
		}

		if existing != nil {
			sub = existing
			sub.IsTrial = false
			sub.Status = types.SubscriptionStatusActive
			sub.StartDate = now
			sub.EndDate = now.Add(time.Duration(cfg.PeriodDays) * 24 * time.Hour)
			sub.TrafficLimitGB = cfg.TrafficGB
			sub.TrafficUsedGB = decimal.Zero
			sub.DeviceLimit = cfg.DeviceLimit
			sub.ConnectedSquads = squadUUIDs(servers)
			sub.UpdatedAt = now
		} else {
			sub = &subscription.Subscription{
				ID:              types.GenerateUUIDWithPrefix(types.UUIDPrefixSubscription),
				UserID:          userID,
				Status:          types.SubscriptionStatusActive,
				IsTrial:         false,
				StartDate:       now,
				EndDate:         now.Add(time.Duration(cfg.PeriodDays) * 24 * time.Hour),
				TrafficLimitGB:  cfg.TrafficGB,
				DeviceLimit:     cfg.DeviceLimit,
				ConnectedSquads: squadUUIDs(servers),
				BaseModel:       types.NewBaseModel(now),
			}
		}
		if err := sub.Validate(s.cfg.Pricing.MaxDevicesLimit); err != nil {
			return err
		}

		if existing != nil {
			if err := s.store.Subscriptions().Update(ctx, sub); err != nil {
				return err
			}
		} else {
			if err := s.store.Subscriptions().Create(ctx, sub); err != nil {
				return err
			}
		}

		rows := snapshotServers(sub.ID, servers, quote.Servers.DiscountPercent, quote.Months, now)
		if err := s.store.Subscriptions().ReplaceServers(ctx, sub.ID, rows); err != nil {
			return err
		}

		txn := &transaction.Transaction{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
			UserID:       userID,
			Type:         types.TransactionTypeSubscriptionPayment,
			AmountKopeks: quote.TotalKopeks,
			IsCompleted:  true,
			Description:  "subscription purchase",
			BaseModel:    types.NewBaseModel(now),
		}
		if err := s.store.Transactions().Create(ctx, txn); err != nil {
			return err
		}

		paid, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		cp := *paid
		cp.HasHadPaidSubscription = true
		return s.store.Users().Update(ctx, &cp)
	})
	if err != nil {
		return nil, nil, err
	}

	var remote *panel.RemoteUser
	s.syncPanel(ctx, "purchase", func() error {
		spec := panel.RemoteUserSpec{
			TelegramID: u.TelegramID, SquadUUIDs: sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB, DeviceLimit: sub.DeviceLimit, ExpireAt: sub.EndDate,
		}
		var perr error
		if sub.PanelUUID == "" {
			remote, perr = s.panel.CreateRemoteUser(ctx, spec)
		} else {
			remote, perr = s.panel.UpdateRemoteUser(ctx, sub.PanelUUID, spec)
		}
		return perr
	})
	if remote != nil {
		sub.PanelUUID = remote.UUID
		sub.SubscriptionURL = remote.SubscriptionURL
		_ = s.store.Subscriptions().Update(ctx, sub)
	}

	s.events.Record(ctx, types.EventSubscriptionPurchased, userID, sub.ID, "", quote.TotalKopeks, nil)
	s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: string(types.EventSubscriptionPurchased), Text: "subscription purchased"})
	s.bus.NotifyAdmin(ctx, notify.Message{Event: string(types.EventSubscriptionPurchased), Text: "subscription purchased", Extra: map[string]string{"user_id": userID}})
	return sub, quote, nil
}

// Extend implements §4.4 "extend".
func (s *SubscriptionService) Extend(ctx context.Context, userID string, periodDays int) (*subscription.Subscription, *pricing.Quote, error) {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription
	var quote *pricing.Quote
	var servers []*server.Server

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.IsTrial {
			return newTrialIneligibleError("a trial subscription cannot be extended")
		}

		pg, err := s.promoGroupFor(ctx, u)
		if err != nil {
			return err
		}

		rows, err := s.store.Subscriptions().ListServers(ctx, sub.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ServerID)
		}
		var selected []pricing.SelectedServer
		servers, selected, err = s.resolveServers(ctx, ids)
		if err != nil {
			return err
		}

		quote, err = s.engine.Quote(&pricing.PriceRequest{
			Action:          pricing.ActionExtension,
			PeriodDays:      periodDays,
			TrafficGB:       sub.TrafficLimitGB,
			DeviceLimit:     sub.DeviceLimit,
			SelectedServers: selected,
			PromoGroup:      pg,
		})
		if err != nil {
			return err
		}

		if err := s.store.DebitBalance(ctx, userID, quote.TotalKopeks); err != nil {
			if ierr.Is(err, ierr.ErrInsufficientFunds) {
				return newInsufficientFundsError(int64(quote.TotalKopeks) - int64(u.BalanceKopeks))
			}
			return err
		}

		base := now
		if sub.EndDate.After(now) {
			base = sub.EndDate
		}
		sub.EndDate = base.Add(time.Duration(periodDays) * 24 * time.Hour)
		sub.UpdatedAt = now
		if err := s.store.Subscriptions().Update(ctx, sub); err != nil {
			return err
		}

		snapshot := snapshotServers(sub.ID, servers, quote.Servers.DiscountPercent, quote.Months, now)
		if err := s.store.Subscriptions().ReplaceServers(ctx, sub.ID, snapshot); err != nil {
			return err
		}

		txn := &transaction.Transaction{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
			UserID:       userID,
			Type:         types.TransactionTypeSubscriptionPayment,
			AmountKopeks: quote.TotalKopeks,
			IsCompleted:  true,
			Description:  "subscription extension",
			BaseModel:    types.NewBaseModel(now),
		}
		return s.store.Transactions().Create(ctx, txn)
	})
	if err != nil {
		return nil, nil, err
	}

	s.syncPanel(ctx, "extend", func() error {
		_, perr := s.panel.UpdateRemoteUser(ctx, sub.PanelUUID, panel.RemoteUserSpec{
			TelegramID: u.TelegramID, SquadUUIDs: sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB, DeviceLimit: sub.DeviceLimit, ExpireAt: sub.EndDate,
		})
		return perr
	})

	s.events.Record(ctx, types.EventSubscriptionExtended, userID, sub.ID, "", quote.TotalKopeks, nil)
	s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: string(types.EventSubscriptionExtended), Text: "subscription extended"})
	return sub, quote, nil
}

// AddServers implements §4.4 "add_servers" — proration over the remaining
// days of the current period; adding a previously removed server is
// billed at current prices (§4.4).
func (s *SubscriptionService) AddServers(ctx context.Context, userID string, serverIDs []string) (*pricing.Quote, error) {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription
	var quote *pricing.Quote
	var newServers []*server.Server

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.IsTrial {
			return newTrialIneligibleError("a trial subscription cannot add servers")
		}
		if !sub.EndDate.After(now) {
			return newInvalidOperationError("subscription has expired, renew before adding servers")
		}

		pg, err := s.promoGroupFor(ctx, u)
		if err != nil {
			return err
		}

		var selected []pricing.SelectedServer
		newServers, selected, err = s.resolveServers(ctx, serverIDs)
		if err != nil {
			return err
		}

		remainingDays := int(sub.EndDate.Sub(now).Hours()/24) + 1
		quote, err = s.engine.Quote(&pricing.PriceRequest{
			Action:          pricing.ActionAddOn,
			DeviceLimit:     0,
			TrafficGB:       0,
			SelectedServers: selected,
			PromoGroup:      pg,
			RemainingDays:   remainingDays,
		})
		if err != nil {
			return err
		}

		if err := s.store.DebitBalance(ctx, userID, quote.TotalKopeks); err != nil {
			if ierr.Is(err, ierr.ErrInsufficientFunds) {
				return newInsufficientFundsError(int64(quote.TotalKopeks) - int64(u.BalanceKopeks))
			}
			return err
		}

		existingRows, err := s.store.Subscriptions().ListServers(ctx, sub.ID)
		if err != nil {
			return err
		}
		newRows := snapshotServers(sub.ID, newServers, quote.Servers.DiscountPercent, quote.Months, now)
		allRows := append(existingRows, newRows...)
		if err := s.store.Subscriptions().ReplaceServers(ctx, sub.ID, allRows); err != nil {
			return err
		}

		sub.ConnectedSquads = append(append([]string(nil), sub.ConnectedSquads...), squadUUIDs(newServers)...)
		sub.UpdatedAt = now
		if err := s.store.Subscriptions().Update(ctx, sub); err != nil {
			return err
		}

		txn := &transaction.Transaction{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
			UserID:       userID,
			Type:         types.TransactionTypeSubscriptionPayment,
			AmountKopeks: quote.TotalKopeks,
			IsCompleted:  true,
			Description:  "add servers",
			BaseModel:    types.NewBaseModel(now),
		}
		return s.store.Transactions().Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.syncPanel(ctx, "add_servers", func() error {
		_, perr := s.panel.UpdateRemoteUser(ctx, sub.PanelUUID, panel.RemoteUserSpec{
			TelegramID: u.TelegramID, SquadUUIDs: sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB, DeviceLimit: sub.DeviceLimit, ExpireAt: sub.EndDate,
		})
		return perr
	})

	s.events.Record(ctx, types.EventServersAdded, userID, sub.ID, "", quote.TotalKopeks, nil)
	s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: string(types.EventServersAdded), Text: "servers added"})
	return quote, nil
}

// RemoveServers implements §4.4 "remove_servers" — always free.
func (s *SubscriptionService) RemoveServers(ctx context.Context, userID string, serverIDs []string) error {
	now := time.Now().UTC()
	remove := make(map[string]bool, len(serverIDs))
	for _, id := range serverIDs {
		remove[id] = true
	}

	var u *user.User
	var sub *subscription.Subscription

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.IsTrial {
			return newTrialIneligibleError("a trial subscription cannot remove servers")
		}

		rows, err := s.store.Subscriptions().ListServers(ctx, sub.ID)
		if err != nil {
			return err
		}
		kept := make([]*subscription.Server, 0, len(rows))
		for _, r := range rows {
			if !remove[r.ServerID] {
				kept = append(kept, r)
			}
		}
		if err := s.store.Subscriptions().ReplaceServers(ctx, sub.ID, kept); err != nil {
			return err
		}

		squads := make([]string, 0, len(kept))
		for _, r := range kept {
			sv, err := s.store.Servers().Get(ctx, r.ServerID)
			if err == nil {
				squads = append(squads, sv.SquadUUID)
			}
		}
		sub.ConnectedSquads = squads
		sub.UpdatedAt = now
		return s.store.Subscriptions().Update(ctx, sub)
	})
	if err != nil {
		return err
	}

	s.syncPanel(ctx, "remove_servers", func() error {
		_, perr := s.panel.UpdateRemoteUser(ctx, sub.PanelUUID, panel.RemoteUserSpec{
			TelegramID: u.TelegramID, SquadUUIDs: sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB, DeviceLimit: sub.DeviceLimit, ExpireAt: sub.EndDate,
		})
		return perr
	})

	s.events.Record(ctx, types.EventServersRemoved, userID, sub.ID, "", 0, nil)
	return nil
}

// ChangeTraffic implements §4.4 "add_traffic"/"switch_traffic" — prorated
// over the remaining period, never refunds on a downgrade (§4.4).
func (s *SubscriptionService) ChangeTraffic(ctx context.Context, userID string, newTrafficGB int) (*pricing.Quote, error) {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription
	var quote *pricing.Quote

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.IsTrial {
			return newTrialIneligibleError("a trial subscription cannot change traffic")
		}
		if !sub.EndDate.After(now) {
			return newInvalidOperationError("subscription has expired, renew before changing traffic")
		}

		pg, err := s.promoGroupFor(ctx, u)
		if err != nil {
			return err
		}

		remainingDays := int(sub.EndDate.Sub(now).Hours()/24) + 1
		quote, err = s.engine.Quote(&pricing.PriceRequest{
			Action:        pricing.ActionAddOn,
			TrafficGB:     newTrafficGB,
			PromoGroup:    pg,
			RemainingDays: remainingDays,
		})
		if err != nil {
			return err
		}

		if quote.TotalKopeks > 0 {
			if err := s.store.DebitBalance(ctx, userID, quote.TotalKopeks); err != nil {
				if ierr.Is(err, ierr.ErrInsufficientFunds) {
					return newInsufficientFundsError(int64(quote.TotalKopeks) - int64(u.BalanceKopeks))
				}
				return err
			}
			txn := &transaction.Transaction{
				ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
				UserID:       userID,
				Type:         types.TransactionTypeSubscriptionPayment,
				AmountKopeks: quote.TotalKopeks,
				IsCompleted:  true,
				Description:  "traffic change",
				BaseModel:    types.NewBaseModel(now),
			}
			if err := s.store.Transactions().Create(ctx, txn); err != nil {
				return err
			}
		}

		sub.TrafficLimitGB = newTrafficGB
		sub.UpdatedAt = now
		return s.store.Subscriptions().Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.syncPanel(ctx, "change_traffic", func() error {
		_, perr := s.panel.UpdateRemoteUser(ctx, sub.PanelUUID, panel.RemoteUserSpec{
			TelegramID: u.TelegramID, SquadUUIDs: sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB, DeviceLimit: sub.DeviceLimit, ExpireAt: sub.EndDate,
		})
		return perr
	})

	s.events.Record(ctx, types.EventTrafficChanged, userID, sub.ID, "", quote.TotalKopeks, nil)
	return quote, nil
}

// ChangeDevices implements §4.4 "add_devices"/"change_devices".
func (s *SubscriptionService) ChangeDevices(ctx context.Context, userID string, newDeviceLimit int) (*pricing.Quote, error) {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription
	var quote *pricing.Quote

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.IsTrial {
			return newTrialIneligibleError("a trial subscription cannot change devices")
		}
		if newDeviceLimit < 1 || newDeviceLimit > s.cfg.Pricing.MaxDevicesLimit {
			return ierr.WithError(ierr.ErrValidation).WithHintf("device limit must be between 1 and %d", s.cfg.Pricing.MaxDevicesLimit).Mark(ierr.ErrValidation)
		}

		pg, err := s.promoGroupFor(ctx, u)
		if err != nil {
			return err
		}

		remainingDays := int(sub.EndDate.Sub(now).Hours()/24) + 1
		quote, err = s.engine.Quote(&pricing.PriceRequest{
			Action:        pricing.ActionAddOn,
			DeviceLimit:   newDeviceLimit,
			PromoGroup:    pg,
			RemainingDays: remainingDays,
		})
		if err != nil {
			return err
		}

		if quote.TotalKopeks > 0 {
			if err := s.store.DebitBalance(ctx, userID, quote.TotalKopeks); err != nil {
				if ierr.Is(err, ierr.ErrInsufficientFunds) {
					return newInsufficientFundsError(int64(quote.TotalKopeks) - int64(u.BalanceKopeks))
				}
				return err
			}
			txn := &transaction.Transaction{
				ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
				UserID:       userID,
				Type:         types.TransactionTypeSubscriptionPayment,
				AmountKopeks: quote.TotalKopeks,
				IsCompleted:  true,
				Description:  "device limit change",
				BaseModel:    types.NewBaseModel(now),
			}
			if err := s.store.Transactions().Create(ctx, txn); err != nil {
				return err
			}
		}

		sub.DeviceLimit = newDeviceLimit
		sub.UpdatedAt = now
		return s.store.Subscriptions().Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.syncPanel(ctx, "change_devices", func() error {
		_, perr := s.panel.UpdateRemoteUser(ctx, sub.PanelUUID, panel.RemoteUserSpec{
			TelegramID: u.TelegramID, SquadUUIDs: sub.ConnectedSquads,
			TrafficLimitGB: sub.TrafficLimitGB, DeviceLimit: sub.DeviceLimit, ExpireAt: sub.EndDate,
		})
		return perr
	})

	s.events.Record(ctx, types.EventDevicesChanged, userID, sub.ID, "", quote.TotalKopeks, nil)
	return quote, nil
}

// ResetTraffic implements §4.4 "reset_traffic": a flat fee equal to the
// 30-day period price, refused when the subscription is unlimited
// (Open Question 4).
func (s *SubscriptionService) ResetTraffic(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	var u *user.User
	var sub *subscription.Subscription
	var fee types.Kopeks

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.TrafficLimitGB == 0 {
			return ierr.NewError("cannot reset traffic on an unlimited subscription").
				WithHint("this subscription has no traffic limit to reset").
				Mark(ierr.ErrValidation)
		}

		var ok bool
		fee, ok = s.cfg.Pricing.PeriodPrices[30]
		if !ok {
			return ierr.NewError("no 30-day price configured for reset fee").Mark(ierr.ErrInternal)
		}

		if err := s.store.DebitBalance(ctx, userID, fee); err != nil {
			if ierr.Is(err, ierr.ErrInsufficientFunds) {
				return newInsufficientFundsError(int64(fee) - int64(u.BalanceKopeks))
			}
			return err
		}

		txn := &transaction.Transaction{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
			UserID:       userID,
			Type:         types.TransactionTypeSubscriptionPayment,
			AmountKopeks: fee,
			IsCompleted:  true,
			Description:  "traffic reset fee",
			BaseModel:    types.NewBaseModel(now),
		}
		if err := s.store.Transactions().Create(ctx, txn); err != nil {
			return err
		}

		sub.TrafficUsedGB = decimal.Zero
		sub.UpdatedAt = now
		return s.store.Subscriptions().Update(ctx, sub)
	})
	if err != nil {
		return err
	}

	s.syncPanel(ctx, "reset_traffic", func() error {
		return s.panel.ResetTraffic(ctx, sub.PanelUUID)
	})

	s.events.Record(ctx, types.EventTrafficReset, userID, sub.ID, "", fee, nil)
	s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: string(types.EventTrafficReset), Text: "traffic reset"})
	return nil
}

// SetAutopay toggles §3 "autopay_enabled"/"autopay_days_before".
func (s *SubscriptionService) SetAutopay(ctx context.Context, userID string, enabled bool, daysBefore int) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if enabled && (daysBefore < 1 || daysBefore > 14) {
			return ierr.WithError(ierr.ErrValidation).WithHint("autopay_days_before must be between 1 and 14").Mark(ierr.ErrValidation)
		}
		sub.AutopayEnabled = enabled
		sub.AutopayDaysBefore = daysBefore
		sub.UpdatedAt = time.Now().UTC()
		if err := s.store.Subscriptions().Update(ctx, sub); err != nil {
			return err
		}
		evt := types.EventAutopayDisabled
		if enabled {
			evt = types.EventAutopayEnabled
		}
		s.events.Record(ctx, evt, userID, sub.ID, "", 0, nil)
		return nil
	})
}

// ToggleModem flips §3 "modem_enabled".
func (s *SubscriptionService) ToggleModem(ctx context.Context, userID string, enabled bool) error {
	var u *user.User
	var sub *subscription.Subscription
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		sub, err = s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		sub.ModemEnabled = enabled
		sub.UpdatedAt = time.Now().UTC()
		return s.store.Subscriptions().Update(ctx, sub)
	})
	if err != nil {
		return err
	}
	s.events.Record(ctx, types.EventModemToggled, userID, sub.ID, "", 0, nil)
	_ = u
	return nil
}

// Autopay implements §4.7's per-subscription renewal attempt: a
// monthly-configuration extend using the subscription's current period
// length (30 days, the autopay runner's renewal unit).
func (s *SubscriptionService) Autopay(ctx context.Context, userID string) error {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	sub, _, err := s.Extend(ctx, userID, 30)
	if err != nil {
		s.events.Record(ctx, types.EventAutopayAttempted, userID, "", "", 0, types.Metadata{"result": "failed", "reason": err.Error()})
		if ierr.Is(err, ierr.ErrInsufficientFunds) {
			s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: "autopay_insufficient_funds", Text: "autopay failed: insufficient balance"})
		} else {
			s.bus.NotifyAdmin(ctx, notify.Message{Event: "autopay_failed", Text: "autopay failed", Extra: map[string]string{"user_id": userID, "error": err.Error()}})
		}
		return err
	}
	s.events.Record(ctx, types.EventAutopayAttempted, userID, sub.ID, "", 0, types.Metadata{"result": "success"})
	s.bus.NotifyUser(ctx, u.TelegramID, notify.Message{Event: "autopay_succeeded", Text: "subscription renewed automatically"})
	s.bus.NotifyAdmin(ctx, notify.Message{Event: "autopay_succeeded", Text: "autopay succeeded", Extra: map[string]string{"user_id": userID}})
	return nil
}

// SyncUsage implements §4.4 "sync_usage" — read-only, safe to call from
// any menu render path.
func (s *SubscriptionService) SyncUsage(ctx context.Context, userID string) (*subscription.Subscription, error) {
	sub, err := s.store.Subscriptions().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.PanelUUID == "" {
		return sub, nil
	}
	used, err := s.panel.SyncSubscriptionUsage(ctx, sub.PanelUUID)
	if err != nil {
		s.logger.WithContext(ctx).Warnw("usage sync failed", "subscription_id", sub.ID, "error", err)
		return sub, nil
	}
	sub.TrafficUsedGB = used
	sub.UpdatedAt = time.Now().UTC()
	if err := s.store.Subscriptions().Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
