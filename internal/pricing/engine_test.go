package pricing

import (
	"testing"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/promogroup"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.PricingConfig {
	return config.GetDefaultConfig().Pricing
}

// S2 — Paid purchase from trial, exact balance.
func TestEngine_Quote_NewSubscription_S2(t *testing.T) {
	e := NewEngine(testConfig())

	q, err := e.Quote(&PriceRequest{
		Action:      ActionNewSubscription,
		PeriodDays:  30,
		TrafficGB:   100,
		DeviceLimit: 3, // = DefaultDeviceLimit, so devices_monthly = 0
		SelectedServers: []SelectedServer{
			{ServerID: "srv-1", PriceKopeksPerMonth: 10000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Months)
	assert.EqualValues(t, 99000, q.Base)
	assert.EqualValues(t, 124000, q.TotalKopeks)
}

// S4 — Extend mid-cycle with a 25% server discount.
func TestEngine_Quote_Extension_S4(t *testing.T) {
	e := NewEngine(testConfig())

	group := &promogroup.PromoGroup{ServerDiscountPercent: 25}

	q, err := e.Quote(&PriceRequest{
		Action:      ActionExtension,
		PeriodDays:  90,
		TrafficGB:   0,
		DeviceLimit: 3,
		SelectedServers: []SelectedServer{
			{ServerID: "srv-1", PriceKopeksPerMonth: 10000},
		},
		PromoGroup: group,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, q.Months)
	assert.EqualValues(t, 7500, q.Servers.DiscountedKopeks)
	assert.EqualValues(t, 291500, q.TotalKopeks)
}

// S6 — Add server post-purchase, proration with 20 days left.
func TestEngine_Quote_AddOn_S6(t *testing.T) {
	e := NewEngine(testConfig())

	q, err := e.Quote(&PriceRequest{
		Action:      ActionAddOn,
		TrafficGB:   0,
		DeviceLimit: 3,
		SelectedServers: []SelectedServer{
			{ServerID: "srv-2", PriceKopeksPerMonth: 10000},
		},
		RemainingDays: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Months)
	assert.EqualValues(t, 10000, q.TotalKopeks)
}

func TestEngine_Quote_UnknownPeriod(t *testing.T) {
	e := NewEngine(testConfig())
	_, err := e.Quote(&PriceRequest{Action: ActionNewSubscription, PeriodDays: 7, TrafficGB: 0, DeviceLimit: 3})
	assert.Error(t, err)
}

func TestEngine_Quote_UnknownTrafficTier(t *testing.T) {
	e := NewEngine(testConfig())
	_, err := e.Quote(&PriceRequest{Action: ActionNewSubscription, PeriodDays: 30, TrafficGB: 77, DeviceLimit: 3})
	assert.Error(t, err)
}

func TestKopeks_ApplyPercentDiscount_RoundingRule(t *testing.T) {
	// discount = 3000*3/100 = 90 kopeks, < 100: no upward rounding even
	// though 2910 isn't a whole ruble.
	assert.EqualValues(t, types.Kopeks(2910), types.Kopeks(3000).ApplyPercentDiscount(3))

	// discount >= 100, but 7500 is already a whole ruble: no rounding.
	assert.EqualValues(t, types.Kopeks(7500), types.Kopeks(10000).ApplyPercentDiscount(25))

	// zero/negative percent is a no-op.
	assert.EqualValues(t, types.Kopeks(10000), types.Kopeks(10000).ApplyPercentDiscount(0))
}
