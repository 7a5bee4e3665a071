package payments

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/user"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct{ sent []notify.Message }

func (c *recordingChannel) Send(_ context.Context, _ int64, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func newTestProcessor(t *testing.T) (*Processor, *store.Store, *user.User) {
	t.Helper()
	log := logger.GetLogger()
	st := store.New(log)
	bus := notify.NewBus(log, &recordingChannel{}, &recordingChannel{})

	var recorded []types.SubscriptionEventType
	record := func(_ context.Context, t types.SubscriptionEventType, _, _, _ string, _ types.Kopeks, _ types.Metadata) {
		recorded = append(recorded, t)
	}
	p := NewProcessor(st, bus, log, record)

	u := user.NewUser(1001, types.LanguageRU, "default", time.Now().UTC())
	require.NoError(t, st.Users().Create(context.Background(), u))
	return p, st, u
}

func TestProcessor_ProcessTopup_CreditsWalletOnce(t *testing.T) {
	p, st, u := newTestProcessor(t)

	result, err := p.ProcessTopup(context.Background(), Notification{
		UserID: u.ID, Provider: types.PaymentProviderStripe, ExternalID: "pi_123", AmountKopeks: 50000,
	})
	require.NoError(t, err)
	require.False(t, result.Replayed)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 50000, got.BalanceKopeks)

	pending, err := st.Receipts().CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, pending)
}

func TestProcessor_ProcessTopup_ReplayIsIdempotent(t *testing.T) {
	p, st, u := newTestProcessor(t)

	_, err := p.ProcessTopup(context.Background(), Notification{
		UserID: u.ID, Provider: types.PaymentProviderStripe, ExternalID: "pi_dup", AmountKopeks: 30000,
	})
	require.NoError(t, err)

	result, err := p.ProcessTopup(context.Background(), Notification{
		UserID: u.ID, Provider: types.PaymentProviderStripe, ExternalID: "pi_dup", AmountKopeks: 30000,
	})
	require.NoError(t, err)
	require.True(t, result.Replayed)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 30000, got.BalanceKopeks)
}

func TestProcessor_ProcessTopup_RejectsNonPositiveAmount(t *testing.T) {
	p, _, u := newTestProcessor(t)

	_, err := p.ProcessTopup(context.Background(), Notification{
		UserID: u.ID, Provider: types.PaymentProviderManual, ExternalID: "adj_1", AmountKopeks: 0,
	})
	require.Error(t, err)
}

func TestStarsIngress_ParseRequiresChargeID(t *testing.T) {
	ing := NewStarsIngress()
	_, err := ing.Parse(context.Background(), []byte(`{"user_id":"user_1","stars_amount":100}`))
	require.Error(t, err)
}

func TestStarsIngress_ParseNormalizesNotification(t *testing.T) {
	ing := NewStarsIngress()
	n, err := ing.Parse(context.Background(), []byte(`{"user_id":"user_1","telegram_payment_charge_id":"charge_1","stars_amount":100,"rub_amount_kopeks":20000}`))
	require.NoError(t, err)
	require.Equal(t, "charge_1", n.ExternalID)
	require.EqualValues(t, 20000, n.AmountKopeks)
	require.Equal(t, types.PaymentProviderStars, n.Provider)
}

func TestManualIngress_NotificationCarriesReason(t *testing.T) {
	n := NewManualNotification("user_1", "adj_42", 10000, "goodwill credit")
	require.Equal(t, types.PaymentProviderManual, n.Provider)
	require.Equal(t, "adj_42", n.ExternalID)
	require.Equal(t, "goodwill credit", n.Metadata["reason"])
}
