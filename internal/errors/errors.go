// Package errors (imported elsewhere as ierr) is the broker's single error
// vocabulary. It wraps cockroachdb/errors so every error in the system can
// carry an internal message, a user-facing hint, structured reportable
// details, and a sentinel "kind" to switch on at the boundary — the typed
// Result<Quote, PricingError> called for in DESIGN NOTES, generalized to
// every failing operation in the broker, not just pricing.
package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Re-exported so callers never need to import both packages.
var (
	New    = errors.New
	Newf   = errors.Newf
	Is     = errors.Is
	As     = errors.As
	Wrap   = errors.Wrap
	Unwrap = errors.Unwrap
)

// The closed set of error kinds from §7. Every user/operator-facing error
// in the broker is Mark()-ed with exactly one of these.
var (
	ErrValidation         = errors.New("validation_failure")
	ErrNotFound           = errors.New("not_found")
	ErrAlreadyExists      = errors.New("already_exists")
	ErrInvalidOperation   = errors.New("invalid_operation")
	ErrDatabase           = errors.New("database_error")
	ErrInternal           = errors.New("internal_error")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrTrialAlreadyUsed   = errors.New("trial_already_used")
	ErrTrialIneligible    = errors.New("trial_ineligible")
	ErrResourceUnavailable = errors.New("resource_unavailable")
	ErrPanelTransient     = errors.New("panel_transient")
	ErrPanelPermanent     = errors.New("panel_permanent")
	ErrDuplicatePayment   = errors.New("duplicate_payment")
)

// ErrorBuilder provides a fluent interface for building errors. Mark must
// be the last call in the chain.
type ErrorBuilder struct {
	err error
}

// NewError starts a new error builder chain.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a builder chain with an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage adds internal-facing context to the error.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint adds a user-facing hint.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured details for reports/tests.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, "__json__:%s", errors.Safe(string(marshaled)))
	return b
}

// Mark marks the error with a sentinel kind. Should be the last call.
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}
