package service

import ierr "github.com/vpnbroker/broker/internal/errors"

// newOrderChangedError is returned when a checkout commit's re-quote
// disagrees with the draft's stored quote (§4.5: "if price inputs change
// between quote and commit, the commit recomputes and, if the delta is
// non-zero, aborts to the draft with an OrderChanged notice").
func newOrderChangedError(oldTotal, newTotal int64) error {
	return ierr.NewError("order price changed before commit").
		WithHintf("price changed from %d to %d kopeks, please review and confirm again", oldTotal, newTotal).
		WithReportableDetails(map[string]any{"old_total": oldTotal, "new_total": newTotal}).
		Mark(ierr.ErrInvalidOperation)
}

func newTrialAlreadyUsedError() error {
	return ierr.WithError(ierr.ErrTrialAlreadyUsed).
		WithHint("A trial subscription has already been used on this account").
		Mark(ierr.ErrTrialAlreadyUsed)
}

func newInsufficientFundsError(missing int64) error {
	return ierr.NewError("insufficient balance").
		WithHintf("top up %d kopeks to complete this purchase", missing).
		WithReportableDetails(map[string]any{"missing_kopeks": missing}).
		Mark(ierr.ErrInsufficientFunds)
}

func newTrialIneligibleError(hint string) error {
	return ierr.WithError(ierr.ErrTrialIneligible).
		WithHint(hint).
		Mark(ierr.ErrTrialIneligible)
}

func newInvalidOperationError(hint string) error {
	return ierr.NewError("operation not permitted in the subscription's current state").
		WithHint(hint).
		Mark(ierr.ErrInvalidOperation)
}

func newResourceUnavailableError(kind, id string) error {
	return ierr.NewError("resource unavailable").
		WithHintf("%s %s is not currently available", kind, id).
		Mark(ierr.ErrResourceUnavailable)
}
