package subscription

import (
	"context"
	"time"
)

// Repository persists subscriptions and their server join rows. Every
// mutating method is expected to be called from inside a store.WithTx unit
// of work (§4.2).
type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error

	// ReplaceServers atomically replaces the subscription's server join
	// rows, snapshotting the price paid for the current period.
	ReplaceServers(ctx context.Context, subscriptionID string, servers []*Server) error
	ListServers(ctx context.Context, subscriptionID string) ([]*Server, error)

	// ListExpiringWithin returns non-trial subscriptions, whatever their
	// status, whose EndDate falls within the window (now, within], for the
	// expiry notifier.
	ListExpiringWithin(ctx context.Context, now, within time.Time) ([]*Subscription, error)

	// ListAutopayDue returns subscriptions with autopay enabled whose
	// EndDate is within their configured AutopayDaysBefore window.
	ListAutopayDue(ctx context.Context, now time.Time) ([]*Subscription, error)

	// ListExpiredTrials returns trial subscriptions whose EndDate is more
	// than graceHours in the past and have not yet been cleaned up.
	ListExpiredTrials(ctx context.Context, now time.Time, graceHours int) ([]*Subscription, error)

	// ListAll is used by the report dispatcher for aggregate counts.
	ListAll(ctx context.Context) ([]*Subscription, error)
}
