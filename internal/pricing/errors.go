package pricing

import ierr "github.com/vpnbroker/broker/internal/errors"

// Error codes for requests the engine refuses outright.
const (
	ErrCodeUnknownPeriod  = "PRICING_UNKNOWN_PERIOD"
	ErrCodeUnknownTraffic = "PRICING_UNKNOWN_TRAFFIC_TIER"
	ErrCodeInvalidRequest = "PRICING_INVALID_REQUEST"
	ErrCodeArithmetic     = "PRICING_ARITHMETIC_MISMATCH"
)

var (
	ErrUnknownPeriod  = ierr.New(ErrCodeUnknownPeriod)
	ErrUnknownTraffic = ierr.New(ErrCodeUnknownTraffic)
	ErrInvalidRequest = ierr.New(ErrCodeInvalidRequest)

	// ErrArithmetic guards the engine's own validation hook (§4.1): it must
	// never fire on valid input, only on a programming bug.
	ErrArithmetic = ierr.New(ErrCodeArithmetic)
)

func newUnknownPeriodError(periodDays int) error {
	return ierr.WithError(ErrUnknownPeriod).
		WithHintf("no price configured for a %d day period", periodDays).
		Mark(ierr.ErrValidation)
}

func newUnknownTrafficError(trafficGB int) error {
	return ierr.WithError(ErrUnknownTraffic).
		WithHintf("no price configured for a %dGB traffic tier", trafficGB).
		Mark(ierr.ErrValidation)
}

func newInvalidRequestError(hint string) error {
	return ierr.WithError(ErrInvalidRequest).
		WithHint(hint).
		Mark(ierr.ErrValidation)
}

func newArithmeticError(expected, got int64) error {
	return ierr.WithError(ErrArithmetic).
		WithHintf("base+months*additions=%d does not match computed total=%d", expected, got).
		WithReportableDetails(map[string]any{
			"expected": expected,
			"got":      got,
		}).
		Mark(ierr.ErrInternal)
}
