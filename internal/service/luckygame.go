package service

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
)

// LuckyGameService is the §4.12 supplemented wallet-funded mini-game: a
// stake-and-multiply gamble gated on an active subscription, limited to
// one play per user per calendar day. It is deliberately independent of
// the Subscription Service and the Pricing Engine — it exists to exercise
// the Entity Store's DebitBalance/CreditBalance from a second caller, not
// to participate in the subscription lifecycle.
type LuckyGameService struct {
	store  *store.Store
	events *EventLogService
	bus    *notify.Bus
	cfg    config.LuckyGameConfig
}

func NewLuckyGameService(st *store.Store, events *EventLogService, bus *notify.Bus, cfg config.LuckyGameConfig) *LuckyGameService {
	return &LuckyGameService{store: st, events: events, bus: bus, cfg: cfg}
}

// PlayResult reports the outcome of one stake.
type PlayResult struct {
	Won          bool
	StakeKopeks  types.Kopeks
	PayoutKopeks types.Kopeks // 0 on a loss
}

// Play debits the stake, flips the configured odds, and credits the payout
// on a win. The debit and any payout happen in the same transaction, so a
// crash mid-resolution never leaves a stake debited with no recorded
// outcome.
func (s *LuckyGameService) Play(ctx context.Context, userID string, stake types.Kopeks) (*PlayResult, error) {
	if !s.cfg.Enabled {
		return nil, ierr.NewError("the lucky game is currently disabled").Mark(ierr.ErrInvalidOperation)
	}
	if stake < s.cfg.MinStakeKopeks || stake > s.cfg.MaxStakeKopeks {
		return nil, ierr.NewError("stake out of range").
			WithHintf("stake must be between %d and %d kopeks", s.cfg.MinStakeKopeks, s.cfg.MaxStakeKopeks).
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	var telegramID int64
	var result *PlayResult

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		telegramID = user.TelegramID

		sub, err := s.store.Subscriptions().GetByUserID(ctx, userID)
		if err != nil {
			return newInvalidOperationError("an active subscription is required to play")
		}
		if !sub.IsActive(now) {
			return newInvalidOperationError("an active subscription is required to play")
		}

		last, played, err := s.events.LastOccurrence(ctx, userID, types.EventLuckyGamePlayed)
		if err != nil {
			return err
		}
		if played && sameUTCDay(last, now) {
			return newInvalidOperationError("only one play per day is allowed")
		}

		if err := s.store.DebitBalance(ctx, userID, stake); err != nil {
			if ierr.Is(err, ierr.ErrInsufficientFunds) {
				return newInsufficientFundsError(int64(stake) - int64(user.BalanceKopeks))
			}
			return err
		}

		won := rand.Intn(100) < s.cfg.WinProbabilityPct
		result = &PlayResult{Won: won, StakeKopeks: stake}

		if won {
			payout := stake * types.Kopeks(s.cfg.WinMultiplier)
			result.PayoutKopeks = payout
			if err := s.store.CreditBalance(ctx, userID, payout, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	extra := types.Metadata{
		"won":           strconv.FormatBool(result.Won),
		"stake_kopeks":  strconv.FormatInt(int64(result.StakeKopeks), 10),
		"payout_kopeks": strconv.FormatInt(int64(result.PayoutKopeks), 10),
	}
	s.events.Record(ctx, types.EventLuckyGamePlayed, userID, "", "", result.PayoutKopeks, extra)

	if result.Won {
		s.bus.NotifyUser(ctx, telegramID, notify.Message{Event: string(types.EventLuckyGamePlayed), Text: "you won the lucky game"})
	}
	return result, nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
