package payments

import (
	"context"

	"github.com/vpnbroker/broker/internal/types"
)

// ManualIngress is the admin balance-adjustment path, grounded on
// handlers.py's admin top-up command: an operator credits a user's wallet
// directly, no external provider or signature involved. ExternalID is
// generated by the caller (the admin command handler) rather than parsed
// from any payload, so Parse returns no Notification and the caller builds
// one with NewManualNotification.
type ManualIngress struct{}

func NewManualIngress() *ManualIngress { return &ManualIngress{} }

func (m *ManualIngress) Provider() types.PaymentProvider { return types.PaymentProviderManual }

func (m *ManualIngress) Verify(_ context.Context, _ []byte, _ string) error { return nil }

// Parse is unused for ManualIngress — admin tooling calls
// NewManualNotification directly and hands it straight to
// Processor.ProcessTopup, since there is no wire payload to decode.
func (m *ManualIngress) Parse(_ context.Context, _ []byte) (*Notification, error) {
	return nil, nil
}

// NewManualNotification builds the Notification for an admin-credited
// top-up. externalID should be a caller-supplied idempotency token (e.g.
// the admin command's own correlation id) so a retried admin action never
// double-credits.
func NewManualNotification(userID, externalID string, amount types.Kopeks, reason string) Notification {
	return Notification{
		UserID:       userID,
		Provider:     types.PaymentProviderManual,
		ExternalID:   externalID,
		AmountKopeks: amount,
		Description:  "manual admin top-up: " + reason,
		Metadata:     types.Metadata{"reason": reason},
	}
}
