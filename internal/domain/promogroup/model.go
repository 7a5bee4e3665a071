// Package promogroup holds the per-category percentage discounts a user's
// wallet-funded purchases get priced against (§3 "PromoGroup").
package promogroup

import (
	"context"

	ierr "github.com/vpnbroker/broker/internal/errors"
)

// PromoGroup is a named bucket of users carrying per-category discounts.
// Only the default group may additionally carry period-based discounts
// (§3): non-default groups exist to give specific cohorts (referral tiers,
// VIPs) a flat discount on servers/traffic/devices without touching the
// base period price.
type PromoGroup struct {
	ID                      string
	Name                    string
	IsDefault               bool
	ServerDiscountPercent   int
	TrafficDiscountPercent  int
	DeviceDiscountPercent   int
	PeriodDiscountsPercent  map[int]int // period_days -> percent, default group only
}

func (g *PromoGroup) Validate() error {
	for _, p := range []int{g.ServerDiscountPercent, g.TrafficDiscountPercent, g.DeviceDiscountPercent} {
		if p < 0 || p > 100 {
			return ierr.NewError("discount percent out of range").
				WithHint("Discount percentages must be between 0 and 100").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// PeriodDiscountPercent returns the period-based discount for period_days,
// which is only ever meaningful for the default group (§3).
func (g *PromoGroup) PeriodDiscountPercent(periodDays int) int {
	if !g.IsDefault || g.PeriodDiscountsPercent == nil {
		return 0
	}
	return g.PeriodDiscountsPercent[periodDays]
}

// Repository persists promo groups.
type Repository interface {
	Create(ctx context.Context, g *PromoGroup) error
	Get(ctx context.Context, id string) (*PromoGroup, error)
	GetDefault(ctx context.Context) (*PromoGroup, error)
	Update(ctx context.Context, g *PromoGroup) error
	List(ctx context.Context) ([]*PromoGroup, error)
}
