package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/require"
)

func TestReportDispatcher_AggregatesCountsAndDeposits(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 8001)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.EndDate = time.Now().UTC().Add(48 * time.Hour)
	})

	now := time.Now().UTC()
	require.NoError(t, st.Transactions().Create(context.Background(), &transaction.Transaction{
		ID: types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction), UserID: u.ID,
		Type: types.TransactionTypeDeposit, AmountKopeks: 50000, IsCompleted: true,
		Provider: types.PaymentProviderManual, ExternalID: "ext-1",
		BaseModel: types.NewBaseModel(now),
	}))
	require.NoError(t, st.Transactions().Create(context.Background(), &transaction.Transaction{
		ID: types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction), UserID: u.ID,
		Type: types.TransactionTypeDeposit, AmountKopeks: 30000, IsCompleted: true,
		Provider: types.PaymentProviderManual, ExternalID: "ext-2",
		BaseModel: types.NewBaseModel(now),
	}))

	events := &recordingEvents{}
	events.Record(context.Background(), types.EventTrialActivated, u.ID, "", "", 0, nil)
	events.Record(context.Background(), types.EventSubscriptionPurchased, u.ID, "", "", 0, nil)

	admin := &recordingChannel{}
	d := NewReportDispatcher(st.Subscriptions(), st.Transactions(), events, notify.NewBus(logger.GetLogger(), &recordingChannel{}, admin), logger.GetLogger(), testConfig())
	d.dispatch(context.Background())

	require.Len(t, admin.sent, 1)
	msg := admin.sent[0]
	require.Equal(t, "daily_report", msg.Event)
	require.Equal(t, "1", msg.Extra["new_trials"])
	require.Equal(t, "1", msg.Extra["new_paid"])
	require.Equal(t, "1", msg.Extra["active"])
	require.Equal(t, "2", msg.Extra["deposit_count"])
	require.Equal(t, "80000", msg.Extra["deposit_sum"])
}
