package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/user"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/require"
)

// recordingChannel is the shared notify.Channel test double used across
// this package's tests, matching internal/service's own test double.
type recordingChannel struct{ sent []notify.Message }

func (c *recordingChannel) Send(_ context.Context, _ int64, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

// recordingEvents is a minimal EventRecorder double that stores every
// Record call and serves CountByType from that in-memory log.
type recordingEvents struct {
	calls []recordedEvent
}

type recordedEvent struct {
	eventType types.SubscriptionEventType
	userID    string
	at        time.Time
}

func (e *recordingEvents) Record(_ context.Context, t types.SubscriptionEventType, userID, _, _ string, _ types.Kopeks, _ types.Metadata) {
	e.calls = append(e.calls, recordedEvent{eventType: t, userID: userID, at: time.Now().UTC()})
}

func (e *recordingEvents) CountByType(_ context.Context, t types.SubscriptionEventType, from, to time.Time) (int, error) {
	n := 0
	for _, c := range e.calls {
		if c.eventType == t && !c.at.Before(from) && !c.at.After(to) {
			n++
		}
	}
	return n, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(logger.GetLogger())
}

func seedUser(t *testing.T, st *store.Store, telegramID int64) *user.User {
	t.Helper()
	u := user.NewUser(telegramID, types.LanguageRU, "default", time.Now().UTC())
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func seedSubscription(t *testing.T, st *store.Store, u *user.User, mutate func(*subscription.Subscription)) *subscription.Subscription {
	t.Helper()
	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:        types.GenerateUUIDWithPrefix(types.UUIDPrefixSubscription),
		UserID:    u.ID,
		Status:    types.SubscriptionStatusActive,
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		BaseModel: types.NewBaseModel(now),
	}
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, st.Subscriptions().Create(context.Background(), sub))
	return sub
}

func testConfig() *config.Configuration {
	return config.GetDefaultConfig()
}
