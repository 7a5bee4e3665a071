package broker

import (
	"context"

	"github.com/vpnbroker/broker/internal/domain/receipt"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/scheduler"
)

// loggingFiscalSubmitter is the default scheduler.FiscalSubmitter: no real
// tax-authority integration is named anywhere in the spec or
// original_source, so the drainer logs every receipt it would have
// submitted and marks it Submitted — the same "log instead of deliver"
// default notify.LoggingChannel uses for the chat/admin channels a real
// Telegram bot client would otherwise occupy. A deployment with an actual
// fiscal provider swaps this for its own scheduler.FiscalSubmitter.
type loggingFiscalSubmitter struct {
	logger *logger.Logger
}

func newLoggingFiscalSubmitter(log *logger.Logger) scheduler.FiscalSubmitter {
	return &loggingFiscalSubmitter{logger: log}
}

func (s *loggingFiscalSubmitter) Submit(ctx context.Context, r *receipt.Receipt) error {
	s.logger.WithContext(ctx).Infow("fiscal receipt submission (logging stub, no provider configured)",
		"receipt_id", r.ID,
		"payment_id", r.PaymentID,
		"amount_kopeks", r.AmountKopeks,
	)
	return nil
}
