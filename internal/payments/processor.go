package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/vpnbroker/broker/internal/domain/payment"
	"github.com/vpnbroker/broker/internal/domain/receipt"
	"github.com/vpnbroker/broker/internal/domain/transaction"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
)

// Processor owns the single commit path every Ingress implementation
// shares: credit the wallet, append one immutable Transaction, queue one
// fiscal receipt, record one audit event, notify the user. It never cares
// which provider called it.
type Processor struct {
	store    *store.Store
	bus      *notify.Bus
	logger   *logger.Logger
	eventLog func(ctx context.Context, t types.SubscriptionEventType, userID, subscriptionID, transactionID string, amount types.Kopeks, extra types.Metadata)
}

// NewProcessor wires the Processor against the store and notify bus; the
// event-recording func is injected so payments doesn't need to import
// internal/service (which already imports internal/store), avoiding an
// import cycle between the two lifecycle-owning packages.
func NewProcessor(st *store.Store, bus *notify.Bus, log *logger.Logger, record func(ctx context.Context, t types.SubscriptionEventType, userID, subscriptionID, transactionID string, amount types.Kopeks, extra types.Metadata)) *Processor {
	return &Processor{store: st, bus: bus, logger: log, eventLog: record}
}

// externalKey mirrors store's private dedupe key format exactly — the two
// must agree since CreditBalance's idempotency check and
// Transactions().Create's duplicate check both key off it (§5 "Exactly-once
// on money-in").
func externalKey(provider types.PaymentProvider, externalID string) string {
	return fmt.Sprintf("%s|%s", provider, externalID)
}

// ProcessTopup is the one path that turns a verified provider Notification
// into wallet balance. A webhook replay (same provider + external_id) is
// detected before touching the wallet and returned as Result.Replayed,
// never double-credited.
func (p *Processor) ProcessTopup(ctx context.Context, n Notification) (*Result, error) {
	if n.AmountKopeks <= 0 {
		return nil, ierr.NewError("top-up amount must be positive").
			WithHintf("received amount_kopeks=%d", n.AmountKopeks).
			Mark(ierr.ErrValidation)
	}
	if n.ExternalID == "" {
		return nil, ierr.NewError("top-up requires a provider external id").
			Mark(ierr.ErrValidation)
	}

	if existing, err := p.store.Transactions().GetByExternalID(ctx, n.Provider, n.ExternalID); err == nil {
		p.logger.WithContext(ctx).Infow("duplicate top-up webhook ignored", "provider", n.Provider, "external_id", n.ExternalID)
		return &Result{Transaction: existing, Replayed: true}, nil
	}

	now := time.Now().UTC()
	var tx *transaction.Transaction
	var pay *payment.Payment

	err := p.store.WithTx(ctx, func(ctx context.Context) error {
		if err := p.store.CreditBalance(ctx, n.UserID, n.AmountKopeks, externalKey(n.Provider, n.ExternalID)); err != nil {
			return err
		}

		tx = &transaction.Transaction{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
			UserID:       n.UserID,
			Type:         types.TransactionTypeDeposit,
			AmountKopeks: n.AmountKopeks,
			IsCompleted:  true,
			Provider:     n.Provider,
			ExternalID:   n.ExternalID,
			Description:  n.Description,
			Metadata:     n.Metadata,
			BaseModel:    types.NewBaseModel(now),
		}
		if err := p.store.Transactions().Create(ctx, tx); err != nil {
			return err
		}

		pay = &payment.Payment{
			ID:            types.GenerateUUIDWithPrefix(types.UUIDPrefixPayment),
			UserID:        n.UserID,
			Provider:      n.Provider,
			AmountKopeks:  n.AmountKopeks,
			ExternalID:    n.ExternalID,
			Status:        payment.StatusSucceeded,
			TransactionID: tx.ID,
			Metadata:      n.Metadata,
			BaseModel:     types.NewBaseModel(now),
		}
		return p.store.Payments().Create(ctx, pay)
	})
	if err != nil {
		return nil, err
	}

	if err := p.store.Receipts().Enqueue(ctx, &receipt.Receipt{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixReceipt),
		PaymentID:    pay.ID,
		Name:         "wallet top-up",
		AmountKopeks: int64(n.AmountKopeks),
		Quantity:     1,
		Status:       receipt.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		p.logger.WithContext(ctx).Errorw("failed to enqueue fiscal receipt", "payment_id", pay.ID, "error", err)
	}

	p.eventLog(ctx, types.EventPaymentReceived, n.UserID, "", tx.ID, n.AmountKopeks, n.Metadata)

	user, err := p.store.Users().GetByID(ctx, n.UserID)
	if err == nil {
		p.bus.NotifyUser(ctx, user.TelegramID, notify.Message{
			Event: string(types.EventPaymentReceived),
			Text:  "your top-up has been credited",
			Extra: map[string]string{"amount_kopeks": fmt.Sprintf("%d", n.AmountKopeks), "provider": string(n.Provider)},
		})
	}

	return &Result{Transaction: tx, Replayed: false}, nil
}
