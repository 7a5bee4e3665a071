package service

import (
	"context"
	"testing"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestCheckoutService(t *testing.T) (*CheckoutService, *SubscriptionService, *store.Store) {
	t.Helper()
	svc, st, cfg, _ := newTestSubscriptionService(t)
	checkout := NewCheckoutService(st, svc.engine, svc, &config.Configuration{Checkout: cfg.Checkout})
	return checkout, svc, st
}

func TestCheckoutService_WizardAdvancesThroughSteps(t *testing.T) {
	co, _, st := newTestCheckoutService(t)
	u := seedTestUser(t, st, 124000)

	ctx := context.Background()
	_, err := co.Start(ctx, u.ID)
	require.NoError(t, err)

	d, err := co.SelectPeriod(ctx, u.ID, 30)
	require.NoError(t, err)
	require.Equal(t, types.StepSelectingTraffic, d.Step)

	d, err = co.SelectTraffic(ctx, u.ID, 100)
	require.NoError(t, err)
	require.Equal(t, types.StepSelectingCountries, d.Step)

	d, err = co.SelectCountries(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Equal(t, types.StepSelectingDevices, d.Step)

	d, err = co.SelectDevices(ctx, u.ID, 3)
	require.NoError(t, err)
	require.Equal(t, types.StepConfirmingPurchase, d.Step)
	require.NotNil(t, d.Quote)
	require.EqualValues(t, 114000, d.Quote.TotalKopeks) // base 99000 + 1x(traffic 15000 + servers 0 + devices 0)
}

func TestCheckoutService_Commit_WrongStepRejected(t *testing.T) {
	co, _, _ := newTestCheckoutService(t)
	ctx := context.Background()

	_, err := co.Commit(ctx, "no-such-user")
	require.Error(t, err)
}
