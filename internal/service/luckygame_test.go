package service

import (
	"context"
	"testing"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestLuckyGameService(t *testing.T, cfg config.LuckyGameConfig) (*LuckyGameService, *SubscriptionService, *store.Store) {
	t.Helper()
	svc, st, _, _ := newTestSubscriptionService(t)
	bus := notify.NewBus(svc.logger, &recordingChannel{}, &recordingChannel{})
	return NewLuckyGameService(st, svc.events, bus, cfg), svc, st
}

func TestLuckyGameService_RequiresActiveSubscription(t *testing.T) {
	cfg := config.LuckyGameConfig{Enabled: true, MinStakeKopeks: 100, MaxStakeKopeks: 1000, WinProbabilityPct: 100, WinMultiplier: 2}
	game, _, st := newTestLuckyGameService(t, cfg)
	u := seedTestUser(t, st, 1000)

	_, err := game.Play(context.Background(), u.ID, 500)
	require.Error(t, err)
}

func TestLuckyGameService_AlwaysWinsWithFullProbability(t *testing.T) {
	cfg := config.LuckyGameConfig{Enabled: true, MinStakeKopeks: 100, MaxStakeKopeks: 1000, WinProbabilityPct: 100, WinMultiplier: 2}
	game, sub, st := newTestLuckyGameService(t, cfg)
	u := seedTestUser(t, st, 1500)

	_, err := sub.CreateTrial(context.Background(), u.ID)
	require.NoError(t, err)

	result, err := game.Play(context.Background(), u.ID, 500)
	require.NoError(t, err)
	require.True(t, result.Won)
	require.EqualValues(t, 1000, result.PayoutKopeks)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2000, got.BalanceKopeks) // 1500 - 500 stake + 1000 payout

	_, err = game.Play(context.Background(), u.ID, 500)
	require.Error(t, err) // second play same day is refused
}

func TestLuckyGameService_NeverWinsWithZeroProbability(t *testing.T) {
	cfg := config.LuckyGameConfig{Enabled: true, MinStakeKopeks: 100, MaxStakeKopeks: 1000, WinProbabilityPct: 0, WinMultiplier: 2}
	game, sub, st := newTestLuckyGameService(t, cfg)
	u := seedTestUser(t, st, 1500)

	_, err := sub.CreateTrial(context.Background(), u.ID)
	require.NoError(t, err)

	result, err := game.Play(context.Background(), u.ID, 500)
	require.NoError(t, err)
	require.False(t, result.Won)
	require.EqualValues(t, 0, result.PayoutKopeks)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1000, got.BalanceKopeks)
}

func TestLuckyGameService_StakeOutOfRangeRejected(t *testing.T) {
	cfg := config.LuckyGameConfig{Enabled: true, MinStakeKopeks: 100, MaxStakeKopeks: 1000, WinProbabilityPct: 100, WinMultiplier: 2}
	game, sub, st := newTestLuckyGameService(t, cfg)
	u := seedTestUser(t, st, 2000)

	_, err := sub.CreateTrial(context.Background(), u.ID)
	require.NoError(t, err)

	_, err = game.Play(context.Background(), u.ID, 50)
	require.Error(t, err)

	_, err = game.Play(context.Background(), u.ID, 1500)
	require.Error(t, err)
}
