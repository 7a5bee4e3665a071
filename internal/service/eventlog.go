// Package service implements the Subscription Service (C4), the Checkout
// Orchestrator (C5), and the Event Log service (C9) — every high-level
// lifecycle operation in the broker, each wired as
// (quote via C1) -> (transaction via C2) -> (panel call via C3) ->
// (event via C9) -> (notification via C8), per §4.4.
package service

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/domain/event"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/types"
)

// EventLogService wraps the append-only event store (C9). It is never
// given write access beyond Append: the log has no Update/Delete by
// design (§3 "Lifecycle").
type EventLogService struct {
	events event.Repository
	logger *logger.Logger
}

func NewEventLogService(events event.Repository, log *logger.Logger) *EventLogService {
	return &EventLogService{events: events, logger: log}
}

// Record appends one audit row. Failures are logged, not propagated — a
// lost audit row must never unwind a committed money/subscription change.
func (s *EventLogService) Record(ctx context.Context, t types.SubscriptionEventType, userID, subscriptionID, transactionID string, amount types.Kopeks, extra types.Metadata) {
	e := &event.Event{
		ID:             types.GenerateUUIDWithPrefix(types.UUIDPrefixEvent),
		Type:           t,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		TransactionID:  transactionID,
		AmountKopeks:   amount,
		OccurredAt:     time.Now().UTC(),
		Extra:          extra,
	}
	if err := s.events.Append(ctx, e); err != nil {
		s.logger.WithContext(ctx).Errorw("failed to append event", "event_type", t, "user_id", userID, "error", err)
	}
}

// CountByType exposes the event log's range-count query directly — the
// report dispatcher (§4.7) calls this once per event type it reports on.
func (s *EventLogService) CountByType(ctx context.Context, t types.SubscriptionEventType, from, to time.Time) (int, error) {
	return s.events.CountByType(ctx, t, from, to)
}

// LastOccurrence returns the most recent time userID's log carries an event
// of type t, used by the lucky game add-on's once-per-day gate (§4.12).
func (s *EventLogService) LastOccurrence(ctx context.Context, userID string, t types.SubscriptionEventType) (time.Time, bool, error) {
	events, err := s.events.ListByUser(ctx, userID)
	if err != nil {
		return time.Time{}, false, err
	}
	var last time.Time
	found := false
	for _, e := range events {
		if e.Type != t {
			continue
		}
		if !found || e.OccurredAt.After(last) {
			last = e.OccurredAt
			found = true
		}
	}
	return last, found, nil
}
