package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestExpiryNotifier_SendsOnMatchingWarningDay(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 5001)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.EndDate = time.Now().UTC().Add(3 * 24 * time.Hour)
	})

	chat := &recordingChannel{}
	cfg := testConfig()
	cfg.Scheduler.AutopayWarningDays = []int{3, 7}

	n := NewExpiryNotifier(st.Subscriptions(), st.Users(), notify.NewBus(logger.GetLogger(), chat, &recordingChannel{}), logger.GetLogger(), cfg)
	n.tick(context.Background())

	require.Len(t, chat.sent, 1)
	require.Equal(t, "subscription_expiring", chat.sent[0].Event)
}

func TestExpiryNotifier_SkipsNonMatchingDay(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 5002)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.EndDate = time.Now().UTC().Add(5 * 24 * time.Hour)
	})

	chat := &recordingChannel{}
	cfg := testConfig()
	cfg.Scheduler.AutopayWarningDays = []int{3, 7}

	n := NewExpiryNotifier(st.Subscriptions(), st.Users(), notify.NewBus(logger.GetLogger(), chat, &recordingChannel{}), logger.GetLogger(), cfg)
	n.tick(context.Background())

	require.Empty(t, chat.sent)
}

func TestMatchesWarningDay(t *testing.T) {
	require.True(t, matchesWarningDay(3, []int{1, 3, 7}))
	require.False(t, matchesWarningDay(2, []int{1, 3, 7}))
}
