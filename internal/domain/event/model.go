// Package event is the broker's append-only audit log (C9, §3
// "SubscriptionEvent") — written once by every lifecycle operation, read by
// the report dispatcher and by admin audits. Rows are never updated.
package event

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/types"
)

// Event is one immutable audit row.
type Event struct {
	ID             string
	Type           types.SubscriptionEventType
	UserID         string
	SubscriptionID string // empty when not applicable
	TransactionID  string // empty when not applicable
	AmountKopeks   types.Kopeks
	OccurredAt     time.Time
	Extra          types.Metadata
}

// Repository appends and queries events. There is deliberately no Update or
// Delete — the log is append-only (§3 "Lifecycle").
type Repository interface {
	Append(ctx context.Context, e *Event) error
	ListByUser(ctx context.Context, userID string) ([]*Event, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*Event, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]*Event, error)
	// CountByType supports the report dispatcher's daily/weekly/monthly
	// counts of new trials, new paid conversions, etc. (§4.7).
	CountByType(ctx context.Context, t types.SubscriptionEventType, from, to time.Time) (int, error)
}
