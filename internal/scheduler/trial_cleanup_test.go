package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/require"
)

func TestTrialCleanup_DisablesExpiredTrialAndRecordsEvent(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 7001)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.IsTrial = true
		s.EndDate = time.Now().UTC().Add(-2 * time.Hour)
	})

	chat := &recordingChannel{}
	events := &recordingEvents{}
	cfg := testConfig()
	cfg.Scheduler.TrialExpiredGraceHours = 1

	c := NewTrialCleanup(st.Subscriptions(), st.Users(), notify.NewBus(logger.GetLogger(), chat, &recordingChannel{}), events, logger.GetLogger(), cfg)
	c.tick(context.Background())

	got, err := st.Subscriptions().GetByUserID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusDisabled, got.Status)

	require.Len(t, chat.sent, 1)
	require.Equal(t, string(types.EventTrialExpired), chat.sent[0].Event)
	require.Len(t, events.calls, 1)
	require.Equal(t, types.EventTrialExpired, events.calls[0].eventType)
}

func TestTrialCleanup_SkipsTrialStillWithinGrace(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 7002)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.IsTrial = true
		s.EndDate = time.Now().UTC().Add(-30 * time.Minute)
	})

	chat := &recordingChannel{}
	events := &recordingEvents{}
	cfg := testConfig()
	cfg.Scheduler.TrialExpiredGraceHours = 1

	c := NewTrialCleanup(st.Subscriptions(), st.Users(), notify.NewBus(logger.GetLogger(), chat, &recordingChannel{}), events, logger.GetLogger(), cfg)
	c.tick(context.Background())

	require.Empty(t, chat.sent)
	require.Empty(t, events.calls)
}

func TestTrialCleanup_NeverRenotifiesAlreadyDisabledTrial(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 7003)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.IsTrial = true
		s.Status = types.SubscriptionStatusDisabled
		s.EndDate = time.Now().UTC().Add(-48 * time.Hour)
	})

	chat := &recordingChannel{}
	events := &recordingEvents{}
	cfg := testConfig()

	c := NewTrialCleanup(st.Subscriptions(), st.Users(), notify.NewBus(logger.GetLogger(), chat, &recordingChannel{}), events, logger.GetLogger(), cfg)
	c.tick(context.Background())

	require.Empty(t, chat.sent)
	require.Empty(t, events.calls)
}
