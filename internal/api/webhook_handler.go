package api

import (
	"io"
	"net/http"

	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/payments"
	"github.com/gin-gonic/gin"
)

// WebhookHandler is the inbound half of Payment Ingress (C6): it terminates
// the HTTP request Stripe (or, for Stars, the Telegram bot's own webhook
// forwarder) delivers, hands the raw body to the matching payments.Ingress,
// and forwards the normalized Notification into the shared Processor. It
// never touches the wallet itself — that invariant lives entirely in
// payments.Processor (§5 "Exactly-once on money-in").
type WebhookHandler struct {
	ingresses map[string]payments.Ingress
	processor *payments.Processor
	logger    *logger.Logger
}

func NewWebhookHandler(processor *payments.Processor, logger *logger.Logger, ingresses ...payments.Ingress) *WebhookHandler {
	byName := make(map[string]payments.Ingress, len(ingresses))
	for _, in := range ingresses {
		byName[string(in.Provider())] = in
	}
	return &WebhookHandler{ingresses: byName, processor: processor, logger: logger}
}

// HandleStripe verifies and parses a Stripe webhook delivery.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	h.handle(c, "stripe", "Stripe-Signature")
}

// HandleStars accepts the Telegram Stars successful_payment forward. There
// is no separate signature here — StarsIngress.Verify is a no-op because
// the bot's own long-poll/webhook connection to Telegram already
// authenticated the update (see payments.StarsIngress).
func (h *WebhookHandler) HandleStars(c *gin.Context) {
	h.handle(c, "stars", "")
}

func (h *WebhookHandler) handle(c *gin.Context, provider, signatureHeader string) {
	in, ok := h.ingresses[provider]
	if !ok {
		_ = c.Error(ierr.NewError("unknown payment provider").
			WithHintf("no ingress registered for %q", provider).
			Mark(ierr.ErrNotFound))
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(ierr.WithError(err).WithHint("failed to read webhook body").Mark(ierr.ErrValidation))
		return
	}

	var signature string
	if signatureHeader != "" {
		signature = c.GetHeader(signatureHeader)
	}

	ctx := c.Request.Context()
	if err := in.Verify(ctx, payload, signature); err != nil {
		_ = c.Error(err)
		return
	}

	notification, err := in.Parse(ctx, payload)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.processor.ProcessTopup(ctx, *notification)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.WithContext(ctx).Infow("webhook processed",
		"provider", provider,
		"external_id", notification.ExternalID,
		"replayed", result.Replayed,
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "replayed": result.Replayed})
}

// HandleHealth answers the load balancer's liveness probe, matching the
// teacher's minimal GET/POST /health route.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
