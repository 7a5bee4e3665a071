package pricing

import (
	"math"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/types"
)

// Engine computes Quotes from a PricingConfig. It carries no mutable state
// and makes no I/O call — every method is pure over its inputs (§4.1).
type Engine struct {
	cfg config.PricingConfig
}

func NewEngine(cfg config.PricingConfig) *Engine {
	return &Engine{cfg: cfg}
}

// monthsFromDays implements `round(days/30)` clamped to >= 1.
func monthsFromDays(days int) int {
	m := int(math.Round(float64(days) / 30.0))
	if m < 1 {
		m = 1
	}
	return m
}

// groupDiscounts reads the three per-component percentages the engine
// discounts (§4.1 only discounts traffic/servers/devices — period discounts,
// if any, are folded into PeriodPrices upstream).
func groupDiscounts(req *PriceRequest) (traffic, servers, devices int) {
	if req.PromoGroup == nil {
		return 0, 0, 0
	}
	return req.PromoGroup.TrafficDiscountPercent, req.PromoGroup.ServerDiscountPercent, req.PromoGroup.DeviceDiscountPercent
}

// lineItem builds one LineItem, applying the rounding rule of §4.1 via
// types.Kopeks.ApplyPercentDiscount.
func lineItem(name string, monthly types.Kopeks, percent int) LineItem {
	return LineItem{
		Name:             name,
		MonthlyKopeks:    monthly,
		DiscountPercent:  percent,
		DiscountedKopeks: monthly.ApplyPercentDiscount(percent),
	}
}

func (e *Engine) monthlyComponents(req *PriceRequest) (traffic, servers, devices LineItem, err error) {
	trafficMonthly, ok := e.cfg.TrafficPrices[req.TrafficGB]
	if !ok {
		return LineItem{}, LineItem{}, LineItem{}, newUnknownTrafficError(req.TrafficGB)
	}

	var serversMonthly types.Kopeks
	for _, s := range req.SelectedServers {
		serversMonthly += s.PriceKopeksPerMonth
	}

	deviceDelta := req.DeviceLimit - e.cfg.DefaultDeviceLimit
	if deviceDelta < 0 {
		deviceDelta = 0
	}
	devicesMonthly := types.Kopeks(deviceDelta) * e.cfg.PricePerDevice

	trafficPct, serversPct, devicesPct := groupDiscounts(req)

	traffic = lineItem("traffic", trafficMonthly, trafficPct)
	servers = lineItem("servers", serversMonthly, serversPct)
	devices = lineItem("devices", devicesMonthly, devicesPct)
	return traffic, servers, devices, nil
}

// Quote computes a Quote for the given request, dispatching on req.Action.
func (e *Engine) Quote(req *PriceRequest) (*Quote, error) {
	switch req.Action {
	case ActionNewSubscription, ActionExtension:
		return e.quoteNewOrExtension(req)
	case ActionAddOn:
		return e.quoteAddOn(req)
	default:
		return nil, newInvalidRequestError("unknown pricing action")
	}
}

func (e *Engine) quoteNewOrExtension(req *PriceRequest) (*Quote, error) {
	base, ok := e.cfg.PeriodPrices[req.PeriodDays]
	if !ok {
		return nil, newUnknownPeriodError(req.PeriodDays)
	}

	traffic, servers, devices, err := e.monthlyComponents(req)
	if err != nil {
		return nil, err
	}

	months := monthsFromDays(req.PeriodDays)

	q := &Quote{
		Action:  req.Action,
		Months:  months,
		Base:    base,
		Traffic: traffic,
		Servers: servers,
		Devices: devices,
	}
	q.TotalKopeks = base + types.Kopeks(months)*q.DiscountedTotal()

	if err := e.validate(q, base, months); err != nil {
		return nil, err
	}
	return q, nil
}

func (e *Engine) quoteAddOn(req *PriceRequest) (*Quote, error) {
	if req.RemainingDays <= 0 {
		return nil, newInvalidRequestError("add-on pricing requires remaining_days > 0")
	}

	traffic, servers, devices, err := e.monthlyComponents(req)
	if err != nil {
		return nil, err
	}

	remainingMonths := monthsFromDays(req.RemainingDays)

	q := &Quote{
		Action:  req.Action,
		Months:  remainingMonths,
		Base:    0,
		Traffic: traffic,
		Servers: servers,
		Devices: devices,
	}
	q.TotalKopeks = types.Kopeks(remainingMonths) * q.DiscountedTotal()

	if err := e.validate(q, 0, remainingMonths); err != nil {
		return nil, err
	}
	return q, nil
}

// validate is the §4.1 "validation hook": the engine must refuse if
// base + months*monthly_additions != total_before_rounding. Since we compute
// TotalKopeks from the exact same discounted components, this can only fire
// on a programming bug, never on user input.
func (e *Engine) validate(q *Quote, base types.Kopeks, months int) error {
	expected := int64(base) + int64(months)*int64(q.DiscountedTotal())
	got := int64(q.TotalKopeks)
	if expected != got {
		return newArithmeticError(expected, got)
	}
	return nil
}
