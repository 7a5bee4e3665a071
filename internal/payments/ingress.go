// Package payments is the Payment Ingress (C6): the boundary between
// external top-up sources and the broker's wallet. Each provider owns its
// own Verify/Parse, then hands a normalized Notification to the shared
// Processor, which is the only code allowed to call CreditBalance and
// create the ledger Transaction — the exactly-once guarantee on money-in
// (§3, §5) lives here, not in any one provider.
package payments

import (
	"context"

	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/types"
)

// Notification is the provider-agnostic shape every Ingress implementation
// normalizes its webhook/update into before handing it to Processor.
type Notification struct {
	UserID       string
	Provider     types.PaymentProvider
	ExternalID   string // provider-assigned id, unique per (Provider, ExternalID)
	AmountKopeks types.Kopeks
	Description  string
	Metadata     types.Metadata
}

// Ingress is one external top-up source. Verify authenticates a raw webhook
// payload (or is a no-op for providers with no signature scheme); Parse
// extracts the normalized Notification once Verify has succeeded.
type Ingress interface {
	Provider() types.PaymentProvider
	Verify(ctx context.Context, payload []byte, signature string) error
	Parse(ctx context.Context, payload []byte) (*Notification, error)
}

// Result is what ProcessTopup returns: the completed (or replayed)
// Transaction plus whether this call actually credited the wallet.
type Result struct {
	Transaction *transaction.Transaction
	Replayed    bool // true when (provider, external_id) had already been processed
}
