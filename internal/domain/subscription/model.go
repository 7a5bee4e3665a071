// Package subscription models the broker's view of a user's VPN access —
// at most one per user (§3 "Subscription").
package subscription

import (
	"time"

	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is 1:1 with a user. Trial conversion mutates this row in
// place rather than creating a new one (§3 "Lifecycle").
type Subscription struct {
	ID                string
	UserID            string
	Status            types.SubscriptionStatus
	IsTrial           bool
	StartDate         time.Time
	EndDate           time.Time
	TrafficLimitGB    int // 0 = unlimited
	TrafficUsedGB     decimal.Decimal
	DeviceLimit       int
	ConnectedSquads   []string // ordered set of server UUIDs
	ModemEnabled      bool
	AutopayEnabled    bool
	AutopayDaysBefore int
	SubscriptionURL   string
	PanelUUID         string
	types.BaseModel
}

// ActualStatus derives "expired" from EndDate even when Status still reads
// Active, so schedulers never need to write just because time passed (§3
// "Derived").
func (s *Subscription) ActualStatus(now time.Time) types.SubscriptionStatus {
	if !s.EndDate.After(now) {
		return types.SubscriptionStatusExpired
	}
	return s.Status
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s.ActualStatus(now) == types.SubscriptionStatusActive
}

// Validate enforces the invariants from §3 that don't depend on the rest of
// the store (available squads, current balance).
func (s *Subscription) Validate(maxDevicesLimit int) error {
	if s.DeviceLimit < 1 {
		return ierr.NewError("device limit must be at least 1").
			WithHint("Device limit must be at least 1").
			Mark(ierr.ErrValidation)
	}
	if s.DeviceLimit > maxDevicesLimit {
		return ierr.NewError("device limit exceeds maximum").
			WithHintf("Device limit cannot exceed %d", maxDevicesLimit).
			Mark(ierr.ErrValidation)
	}
	if s.IsTrial && s.Status != types.SubscriptionStatusActive && s.Status != types.SubscriptionStatusExpired {
		return ierr.NewError("trial subscription in invalid status").
			WithHint("A trial subscription can only be active or expired").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Server is the join row with its own price snapshot (§3
// "SubscriptionServer").
type Server struct {
	SubscriptionID  string
	ServerID        string
	PaidPriceKopeks types.Kopeks
	CreatedAt       time.Time
}
