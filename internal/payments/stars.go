package payments

import (
	"context"
	"encoding/json"
	"strconv"

	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/types"
)

// StarsUpdate is the normalized shape of Telegram's successful_payment
// update for an in-chat Stars purchase, grounded on
// original_source/stars_handlers.py's successful_payment_handler.
type StarsUpdate struct {
	UserID                  string `json:"user_id"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
	StarsAmount             int64  `json:"stars_amount"`
	RubAmountKopeks         int64  `json:"rub_amount_kopeks"`
}

// StarsIngress is the Telegram Stars adapter. Telegram Bot API updates
// arrive over the bot's own long-poll/webhook connection, already
// authenticated by that transport — there is no separate signature to
// verify here, unlike Stripe's HMAC header (source: stars_handlers.py
// trusts kwargs["bot"]'s delivery, never re-checks a signature).
type StarsIngress struct{}

func NewStarsIngress() *StarsIngress { return &StarsIngress{} }

func (s *StarsIngress) Provider() types.PaymentProvider { return types.PaymentProviderStars }

func (s *StarsIngress) Verify(_ context.Context, _ []byte, _ string) error { return nil }

func (s *StarsIngress) Parse(_ context.Context, payload []byte) (*Notification, error) {
	var upd StarsUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		return nil, ierr.NewError("failed to decode stars payment update").
			Mark(ierr.ErrValidation)
	}
	if upd.TelegramPaymentChargeID == "" {
		return nil, ierr.NewError("stars update missing telegram_payment_charge_id").
			Mark(ierr.ErrValidation)
	}
	if upd.UserID == "" {
		return nil, ierr.NewError("stars update missing user id").
			Mark(ierr.ErrValidation)
	}

	return &Notification{
		UserID:       upd.UserID,
		Provider:     types.PaymentProviderStars,
		ExternalID:   upd.TelegramPaymentChargeID,
		AmountKopeks: types.Kopeks(upd.RubAmountKopeks),
		Description:  "telegram stars top-up",
		Metadata:     types.Metadata{"stars_amount": strconv.FormatInt(upd.StarsAmount, 10)},
	}, nil
}
