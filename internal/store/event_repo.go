package store

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/domain/event"
	"github.com/vpnbroker/broker/internal/types"
)

type eventRepo struct{ store *Store }

func (st *Store) Events() event.Repository { return &eventRepo{store: st} }

func (r *eventRepo) Append(ctx context.Context, e *event.Event) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.events = append(s.events, e)
	return nil
}

func (r *eventRepo) ListByUser(ctx context.Context, userID string) ([]*event.Event, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*event.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *eventRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*event.Event, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*event.Event
	for _, e := range s.events {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *eventRepo) ListInRange(ctx context.Context, from, to time.Time) ([]*event.Event, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*event.Event
	for _, e := range s.events {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *eventRepo) CountByType(ctx context.Context, t types.SubscriptionEventType, from, to time.Time) (int, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	count := 0
	for _, e := range s.events {
		if e.Type == t && !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			count++
		}
	}
	return count, nil
}
