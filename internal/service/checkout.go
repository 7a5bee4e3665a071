package service

import (
	"sync"
	"time"

	"context"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/checkout"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/idempotency"
	"github.com/vpnbroker/broker/internal/pricing"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
)

// CheckoutService is the Checkout Orchestrator (C5): a resumable wizard
// over a purchase configuration, persisting a CheckoutDraft on every
// transition so a user deflected to top-up can resume where they left off
// (§4.5).
type CheckoutService struct {
	store        *store.Store
	engine       *pricing.Engine
	subscription *SubscriptionService
	draftTTL     time.Duration

	idem *idempotency.Generator

	mu         sync.Mutex
	committing map[string]struct{}
}

func NewCheckoutService(st *store.Store, engine *pricing.Engine, sub *SubscriptionService, cfg *config.Configuration) *CheckoutService {
	return &CheckoutService{
		store:        st,
		engine:       engine,
		subscription: sub,
		draftTTL:     cfg.Checkout.DraftTTL,
		idem:         idempotency.NewGenerator(),
		committing:   make(map[string]struct{}),
	}
}

// order is the step transition graph from §4.5.
var order = map[types.CheckoutStep]types.CheckoutStep{
	types.StepSelectingPeriod:    types.StepSelectingTraffic,
	types.StepSelectingTraffic:   types.StepSelectingCountries,
	types.StepSelectingCountries: types.StepSelectingDevices,
	types.StepSelectingDevices:   types.StepConfirmingPurchase,
}

// Start begins a new wizard, overwriting any prior draft for the user
// (§3 "CheckoutDraft": "starting a new checkout overwrites any prior
// draft").
func (s *CheckoutService) Start(ctx context.Context, userID string) (*checkout.Draft, error) {
	d := &checkout.Draft{
		UserID:    userID,
		Step:      types.StepSelectingPeriod,
		ExpiresAt: time.Now().UTC().Add(s.draftTTL),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.CheckoutDrafts().Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Resume fetches the user's in-flight draft, or nil if none exists or it
// has expired (the caller should then call Start).
func (s *CheckoutService) Resume(ctx context.Context, userID string) (*checkout.Draft, error) {
	d, err := s.store.CheckoutDrafts().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return d, nil
}

// quote recomputes the draft's Quote from its accumulated Config, via C1,
// resolving the user's promo group and the selected servers the same way
// SubscriptionService does.
func (s *CheckoutService) quote(ctx context.Context, userID string, cfg checkout.Config) (*pricing.Quote, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pg, err := s.subscription.promoGroupFor(ctx, u)
	if err != nil {
		return nil, err
	}
	_, selected, err := s.subscription.resolveServers(ctx, cfg.ServerIDs)
	if err != nil {
		return nil, err
	}
	return s.engine.Quote(&pricing.PriceRequest{
		Action:          pricing.ActionNewSubscription,
		PeriodDays:      cfg.PeriodDays,
		TrafficGB:       cfg.TrafficGB,
		DeviceLimit:     cfg.DeviceLimit,
		SelectedServers: selected,
		PromoGroup:      pg,
	})
}

// advance is the shared step-transition body: merge the caller's partial
// config, recompute the quote, persist, and move to the next step.
func (s *CheckoutService) advance(ctx context.Context, userID string, step types.CheckoutStep, mutate func(*checkout.Config)) (*checkout.Draft, error) {
	d, err := s.Resume(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Step != step {
		return nil, ierr.NewError("checkout draft is not at the expected step").
			WithHint("start a new checkout and try again").
			Mark(ierr.ErrInvalidOperation)
	}

	mutate(&d.Config)

	next, ok := order[step]
	if !ok {
		return nil, ierr.NewError("no transition defined from this step").Mark(ierr.ErrInternal)
	}
	d.Step = next
	d.UpdatedAt = time.Now().UTC()
	d.ExpiresAt = d.UpdatedAt.Add(s.draftTTL)

	if next == types.StepConfirmingPurchase {
		q, err := s.quote(ctx, userID, d.Config)
		if err != nil {
			return nil, err
		}
		d.Quote = q
		d.IdempotencyKey = s.idem.GenerateKey(idempotency.ScopeOneOffInvoice, map[string]interface{}{
			"user_id":      userID,
			"period_days":  d.Config.PeriodDays,
			"traffic_gb":   d.Config.TrafficGB,
			"device_limit": d.Config.DeviceLimit,
			"total_kopeks": int64(q.TotalKopeks),
			"updated_at":   d.UpdatedAt.UnixNano(),
		})
	}

	if err := s.store.CheckoutDrafts().Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SelectPeriod applies the selecting_period step.
func (s *CheckoutService) SelectPeriod(ctx context.Context, userID string, periodDays int) (*checkout.Draft, error) {
	return s.advance(ctx, userID, types.StepSelectingPeriod, func(c *checkout.Config) {
		c.PeriodDays = periodDays
	})
}

// SelectTraffic applies the selecting_traffic step.
func (s *CheckoutService) SelectTraffic(ctx context.Context, userID string, trafficGB int) (*checkout.Draft, error) {
	return s.advance(ctx, userID, types.StepSelectingTraffic, func(c *checkout.Config) {
		c.TrafficGB = trafficGB
	})
}

// SelectCountries applies the selecting_countries step.
func (s *CheckoutService) SelectCountries(ctx context.Context, userID string, serverIDs []string) (*checkout.Draft, error) {
	return s.advance(ctx, userID, types.StepSelectingCountries, func(c *checkout.Config) {
		c.ServerIDs = serverIDs
	})
}

// SelectDevices applies the selecting_devices step, landing the wizard at
// confirming_purchase with a fresh Quote attached.
func (s *CheckoutService) SelectDevices(ctx context.Context, userID string, deviceLimit int) (*checkout.Draft, error) {
	return s.advance(ctx, userID, types.StepSelectingDevices, func(c *checkout.Config) {
		c.DeviceLimit = deviceLimit
	})
}

// Commit implements §4.5's confirming_purchase gate: it re-quotes against
// current prices and, if the total changed since the draft's stored Quote,
// aborts back to the draft with an OrderChanged notice instead of
// committing a stale price. On success it delegates to
// SubscriptionService.Purchase and deletes the draft.
func (s *CheckoutService) Commit(ctx context.Context, userID string) (*checkout.Draft, error) {
	d, err := s.Resume(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Step != types.StepConfirmingPurchase || d.Quote == nil {
		return nil, ierr.NewError("no purchase pending confirmation").
			WithHint("start a new checkout and try again").
			Mark(ierr.ErrInvalidOperation)
	}

	// Guard against a concurrent Commit for the same draft — a bot-side
	// retry racing the user's original tap — committing twice before the
	// first call has a chance to delete the draft.
	if !s.beginCommit(d.IdempotencyKey) {
		return nil, ierr.NewError("purchase already being confirmed").
			WithHint("please wait for the previous confirmation to finish").
			Mark(ierr.ErrInvalidOperation)
	}
	defer s.endCommit(d.IdempotencyKey)

	fresh, err := s.quote(ctx, userID, d.Config)
	if err != nil {
		return nil, err
	}
	if fresh.TotalKopeks != d.Quote.TotalKopeks {
		oldTotal := int64(d.Quote.TotalKopeks)
		d.Quote = fresh
		d.UpdatedAt = time.Now().UTC()
		if saveErr := s.store.CheckoutDrafts().Save(ctx, d); saveErr != nil {
			return nil, saveErr
		}
		return nil, newOrderChangedError(oldTotal, int64(fresh.TotalKopeks))
	}

	_, _, err = s.subscription.Purchase(ctx, userID, PurchaseConfig{
		PeriodDays:  d.Config.PeriodDays,
		TrafficGB:   d.Config.TrafficGB,
		DeviceLimit: d.Config.DeviceLimit,
		ServerIDs:   d.Config.ServerIDs,
	})
	if err != nil {
		if ierr.Is(err, ierr.ErrInsufficientFunds) {
			d.Step = types.StepCartSavedForTopup
			d.UpdatedAt = time.Now().UTC()
			_ = s.store.CheckoutDrafts().Save(ctx, d)
			return d, err
		}
		return nil, err
	}

	d.Step = types.StepCommitted
	if delErr := s.store.CheckoutDrafts().Delete(ctx, userID); delErr != nil {
		return nil, delErr
	}
	return d, nil
}

// beginCommit reserves key for the caller, returning false if another
// Commit for the same draft is already in flight. An empty key (drafts
// created before a confirming_purchase transition ever ran) never
// contends — there is nothing to replay yet.
func (s *CheckoutService) beginCommit(key string) bool {
	if key == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, inFlight := s.committing[key]; inFlight {
		return false
	}
	s.committing[key] = struct{}{}
	return true
}

func (s *CheckoutService) endCommit(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	delete(s.committing, key)
	s.mu.Unlock()
}
