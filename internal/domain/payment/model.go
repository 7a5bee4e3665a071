// Package payment models one payment-provider attempt, the sibling record
// of a Transaction that a provider-specific adapter owns until the money
// actually lands (§3 "Payment").
package payment

import (
	"context"

	"github.com/vpnbroker/broker/internal/types"
)

// Status is the lifecycle of a single provider-side payment attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Payment is one attempt to move money through a specific provider. It is
// joined to a Transaction once the attempt completes; unlike Transaction it
// is allowed to be updated in place while pending (§3 "Payment").
type Payment struct {
	ID            string
	UserID        string
	Provider      types.PaymentProvider
	AmountKopeks  types.Kopeks
	ExternalID    string // provider-assigned id, e.g. Stripe PaymentIntent id
	Status        Status
	TransactionID string // set once completed and joined to a Transaction
	Metadata      types.Metadata
	types.BaseModel
}

// Repository persists payment attempts.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByExternalID(ctx context.Context, provider types.PaymentProvider, externalID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
}
