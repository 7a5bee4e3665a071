// Package checkout holds the Checkout Orchestrator's (C5) resumable wizard
// state: a draft keyed by user, carrying the partial configuration and the
// last computed quote so a user bounced to top-up can resume (§4.5).
package checkout

import (
	"context"
	"time"

	"github.com/vpnbroker/broker/internal/pricing"
	"github.com/vpnbroker/broker/internal/types"
)

// Config is the partial purchase configuration accumulated across wizard
// steps. Any field may be its zero value until the corresponding step runs.
type Config struct {
	PeriodDays  int
	TrafficGB   int
	DeviceLimit int
	ServerIDs   []string
}

// Draft is the opaque, serializable wizard snapshot keyed by user_id (§3
// "CheckoutDraft"). It has a TTL enforced by the caller (ExpiresAt).
type Draft struct {
	UserID string
	Step   types.CheckoutStep
	Config Config
	Quote  *pricing.Quote
	// IdempotencyKey is stamped once the draft reaches confirming_purchase
	// so two concurrent Commit calls against the same draft — a bot-side
	// retry racing the original tap — resolve to the same key instead of
	// each minting their own (§4.5, mirrors internal/store's
	// provider+external_id dedupe key for payments).
	IdempotencyKey string
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the draft has aged past its TTL.
func (d *Draft) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// Repository persists checkout drafts. A draft is a single row per user —
// starting a new checkout overwrites any prior draft for that user.
type Repository interface {
	Save(ctx context.Context, d *Draft) error
	Get(ctx context.Context, userID string) (*Draft, error)
	Delete(ctx context.Context, userID string) error
}
