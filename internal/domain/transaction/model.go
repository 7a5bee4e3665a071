// Package transaction is the broker's immutable ledger (§3 "Transaction").
// Append-only: once IsCompleted is true, a row is never updated again.
package transaction

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/types"
)

// Transaction is one ledger entry. ExternalID is only set for deposits and
// is unique per (Provider, ExternalID) — the exactly-once guarantee for
// money-in (§3 invariant, §5 "Exactly-once on money-in").
type Transaction struct {
	ID           string
	UserID       string
	Type         types.TransactionType
	AmountKopeks types.Kopeks
	IsCompleted  bool
	Provider     types.PaymentProvider // zero value for non-deposit types
	ExternalID   string                // empty unless Type == deposit
	Description  string
	Metadata     types.Metadata
	types.BaseModel
}

// Repository persists transactions. Rows are only ever inserted — there is
// deliberately no Update method (§3 "Lifecycle": "Transactions are
// immutable once is_completed=true").
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByExternalID(ctx context.Context, provider types.PaymentProvider, externalID string) (*Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]*Transaction, error)

	// ListCompletedInRange supports the report dispatcher's deposit
	// sum/count for a period (§4.7 "Report dispatcher").
	ListCompletedInRange(ctx context.Context, from, to time.Time) ([]*Transaction, error)
}
