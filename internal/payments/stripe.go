package payments

import (
	"context"
	"encoding/json"

	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeIngress stands in for the source's generic card-PSP shape (WATA,
// MulenPay, YooKassa all verify an HMAC-style signature over the raw body
// the same way) — grounded on
// internal/integration/stripe/payment.go's ParseWebhookEvent.
type StripeIngress struct {
	webhookSecret string
}

func NewStripeIngress(webhookSecret string) *StripeIngress {
	return &StripeIngress{webhookSecret: webhookSecret}
}

func (s *StripeIngress) Provider() types.PaymentProvider { return types.PaymentProviderStripe }

// Verify checks the Stripe-Signature header against the configured
// endpoint secret. Signature mismatches and tampered payloads are rejected
// here, before Parse ever touches the body.
func (s *StripeIngress) Verify(_ context.Context, payload []byte, signature string) error {
	_, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return ierr.NewError("stripe webhook signature verification failed").
			WithHint("invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Parse only handles payment_intent.succeeded — every other Stripe event
// type is the caller's responsibility to ignore (mirrors the teacher's
// Handler.HandleWebhookEvent switch, narrowed to the one event the wallet
// cares about).
func (s *StripeIngress) Parse(_ context.Context, payload []byte) (*Notification, error) {
	var evt stripeapi.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, ierr.NewError("failed to decode stripe event").
			WithHint("malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	if evt.Type != "payment_intent.succeeded" {
		return nil, ierr.NewError("unsupported stripe event type").
			WithHintf("event type %s is not a top-up event", evt.Type).
			Mark(ierr.ErrValidation)
	}

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
		return nil, ierr.NewError("failed to decode stripe payment intent").
			Mark(ierr.ErrValidation)
	}

	userID := intent.Metadata["broker_user_id"]
	if userID == "" {
		return nil, ierr.NewError("stripe payment intent missing broker_user_id metadata").
			Mark(ierr.ErrValidation)
	}

	return &Notification{
		UserID:       userID,
		Provider:     types.PaymentProviderStripe,
		ExternalID:   intent.ID,
		AmountKopeks: types.Kopeks(intent.Amount),
		Description:  "stripe top-up",
		Metadata:     types.Metadata{"stripe_event_id": evt.ID},
	}, nil
}
