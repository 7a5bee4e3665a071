// Package receipt is the fiscal receipt queue (§4.6, §6 "Fiscal receipt
// queue format"): a FIFO of records queued on successful deposit, drained by
// a dedicated scheduler with capped retries (§4.7 "Receipt queue drainer").
package receipt

import (
	"context"
	"time"
)

// Status is the lifecycle of one queued receipt submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusFailed    Status = "failed" // attempts exhausted; surfaced to admins
)

// ClientInfo is the optional buyer information a tax service may require.
type ClientInfo struct {
	Email string
	Phone string
}

// Receipt is one queued fiscal receipt record, matching the wire shape in
// §6: `{payment_id, name, amount, quantity, client_info?, attempts}`.
type Receipt struct {
	ID         string
	PaymentID  string
	Name       string
	AmountKopeks int64
	Quantity   int
	ClientInfo *ClientInfo // nil when not supplied
	Attempts   int
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository persists the receipt queue.
type Repository interface {
	Enqueue(ctx context.Context, r *Receipt) error
	ListPending(ctx context.Context, limit int) ([]*Receipt, error)
	MarkSubmitted(ctx context.Context, id string) error
	RecordAttemptFailure(ctx context.Context, id string, maxAttempts int) error
	CountPending(ctx context.Context) (int, error)
}
