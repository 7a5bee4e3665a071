package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorResponse is the wire shape internal/api writes for any handler that
// returns a non-nil error, mirroring the teacher's rest/middleware
// ErrorResponse/ErrorDetail pair.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// DisplayMessage returns the first non-empty hint attached to err, falling
// back to a generic message — hints are never the raw internal error text,
// so a webhook's 4xx body never leaks implementation detail.
func DisplayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint != "" {
			return hint
		}
	}
	return "an unexpected error occurred"
}

// HTTPStatusFromErr maps one of the §7 error kinds to the status code a
// webhook caller (Stripe, Telegram) should see. Anything not marked with a
// known kind is treated as internal.
func HTTPStatusFromErr(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrDuplicatePayment):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrTrialAlreadyUsed), errors.Is(err, ErrTrialIneligible):
		return http.StatusForbidden
	case errors.Is(err, ErrResourceUnavailable), errors.Is(err, ErrPanelTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPanelPermanent):
		return http.StatusBadGateway
	case errors.Is(err, ErrDatabase), errors.Is(err, ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
