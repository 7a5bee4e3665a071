package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/stretchr/testify/require"
)

type fakeAutopayService struct {
	attempted []string
	err       error
}

func (f *fakeAutopayService) Autopay(_ context.Context, userID string) error {
	f.attempted = append(f.attempted, userID)
	return f.err
}

func TestAutopayRunner_ChargesDueSubscriptions(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 6001)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.AutopayEnabled = true
		s.AutopayDaysBefore = 2
		s.EndDate = time.Now().UTC().Add(24 * time.Hour)
	})

	svc := &fakeAutopayService{}
	r := NewAutopayRunner(st.Subscriptions(), svc, logger.GetLogger(), testConfig())
	r.tick(context.Background())

	require.Equal(t, []string{u.ID}, svc.attempted)
}

func TestAutopayRunner_SkipsNotYetDue(t *testing.T) {
	st := newTestStore(t)
	u := seedUser(t, st, 6002)
	seedSubscription(t, st, u, func(s *subscription.Subscription) {
		s.AutopayEnabled = true
		s.AutopayDaysBefore = 2
		s.EndDate = time.Now().UTC().Add(10 * 24 * time.Hour)
	})

	svc := &fakeAutopayService{}
	r := NewAutopayRunner(st.Subscriptions(), svc, logger.GetLogger(), testConfig())
	r.tick(context.Background())

	require.Empty(t, svc.attempted)
}

func TestAutopayRunner_ContinuesPastServiceFailure(t *testing.T) {
	st := newTestStore(t)
	u1 := seedUser(t, st, 6003)
	u2 := seedUser(t, st, 6004)
	seedSubscription(t, st, u1, func(s *subscription.Subscription) {
		s.AutopayEnabled = true
		s.AutopayDaysBefore = 1
		s.EndDate = time.Now().UTC().Add(time.Hour)
	})
	seedSubscription(t, st, u2, func(s *subscription.Subscription) {
		s.AutopayEnabled = true
		s.AutopayDaysBefore = 1
		s.EndDate = time.Now().UTC().Add(time.Hour)
	})

svcFail := &fakeAutopayService{err: errDummy{}}
	r := NewAutopayRunner(st.Subscriptions(), svcFail, logger.GetLogger(), testConfig())
	r.tick(context.Background())

	require.Len(t, svcFail.attempted, 2)
}

type errDummy struct{}

func (errDummy) Error() string { return "autopay failed" }
