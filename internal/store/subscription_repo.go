package store

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/types"
)

// subscriptionRepo adapts Store to subscription.Repository, enforcing the
// §3 1:1 user<->subscription invariant by keying on user id.
type subscriptionRepo struct{ store *Store }

func (st *Store) Subscriptions() subscription.Repository { return &subscriptionRepo{store: st} }

func (r *subscriptionRepo) Create(ctx context.Context, sub *subscription.Subscription) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.subscriptions[sub.UserID] = sub
	return nil
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, subscription.NewNotFoundError(userID)
	}
	cp := *sub
	return &cp, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, sub *subscription.Subscription) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	if _, ok := s.subscriptions[sub.UserID]; !ok {
		return subscription.NewNotFoundError(sub.UserID)
	}
	s.subscriptions[sub.UserID] = sub
	return nil
}

func (r *subscriptionRepo) ReplaceServers(ctx context.Context, subscriptionID string, servers []*subscription.Server) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.subscriptionServers[subscriptionID] = append([]*subscription.Server(nil), servers...)
	return nil
}

func (r *subscriptionRepo) ListServers(ctx context.Context, subscriptionID string) ([]*subscription.Server, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	return append([]*subscription.Server(nil), s.subscriptionServers[subscriptionID]...), nil
}

func (r *subscriptionRepo) ListExpiringWithin(ctx context.Context, now, within time.Time) ([]*subscription.Subscription, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.IsTrial {
			continue
		}
		if sub.EndDate.After(now) && !sub.EndDate.After(within) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *subscriptionRepo) ListAutopayDue(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if !sub.AutopayEnabled || sub.IsTrial {
			continue
		}
		dueAt := sub.EndDate.Add(-time.Duration(sub.AutopayDaysBefore) * 24 * time.Hour)
		if !dueAt.After(now) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *subscriptionRepo) ListExpiredTrials(ctx context.Context, now time.Time, graceHours int) ([]*subscription.Subscription, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*subscription.Subscription
	cutoff := now.Add(-time.Duration(graceHours) * time.Hour)
	for _, sub := range s.subscriptions {
		// Disabled marks a trial already swept by a prior run (§4.7
		// "Trial cleanup"); skip it so the notification never repeats.
		if sub.IsTrial && sub.EndDate.Before(cutoff) && sub.Status != types.SubscriptionStatusDisabled {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *subscriptionRepo) ListAll(ctx context.Context) ([]*subscription.Subscription, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	out := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, sub)
	}
	return out, nil
}
