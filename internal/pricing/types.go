// Package pricing is the broker's Pricing Engine (C1): a pure, deterministic,
// side-effect-free function over inputs, grounded on the teacher's
// proration/price services (internal/service/proration.go) but reshaped
// around §4.1's integer-kopeks model instead of decimal invoice line items.
package pricing

import (
	"github.com/vpnbroker/broker/internal/domain/promogroup"
	"github.com/vpnbroker/broker/internal/types"
)

// Action distinguishes the three pricing models from §4.1.
type Action string

const (
	ActionNewSubscription Action = "new_subscription"
	ActionAddOn           Action = "add_on"
	ActionExtension       Action = "extension"
)

// SelectedServer is one server priced as part of a request.
type SelectedServer struct {
	ServerID            string
	PriceKopeksPerMonth types.Kopeks
}

// PriceRequest is the Pricing Engine's sole input shape (§4.1 "Inputs").
type PriceRequest struct {
	Action Action

	PeriodDays      int
	TrafficGB       int // 0 = unlimited
	DeviceLimit     int
	SelectedServers []SelectedServer

	PromoGroup *promogroup.PromoGroup

	// RemainingDays is only used for ActionAddOn — days left on the
	// current paid period, used to compute remaining_months (§4.1).
	RemainingDays int
}

// LineItem is one priced component in a Quote's breakdown.
type LineItem struct {
	Name             string
	MonthlyKopeks    types.Kopeks
	DiscountPercent  int
	DiscountedKopeks types.Kopeks
}

// Quote is the Pricing Engine's sole output shape: a line-itemized
// breakdown plus a single total (§4.1).
type Quote struct {
	Action Action
	Months int
	Base   types.Kopeks

	Traffic LineItem
	Servers LineItem
	Devices LineItem

	TotalKopeks types.Kopeks
}

// DiscountedTotal sums the three discounted monthly components — the
// "monthly_additions" the engine's validation hook checks against (§4.1
// "Validation hook").
func (q *Quote) DiscountedTotal() types.Kopeks {
	return q.Traffic.DiscountedKopeks + q.Servers.DiscountedKopeks + q.Devices.DiscountedKopeks
}
