package subscription

import ierr "github.com/vpnbroker/broker/internal/errors"

// Error codes specific to the subscription domain.
const (
	ErrCodeNotFound     = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeTrialCannotBeMutated = "SUBSCRIPTION_TRIAL_CANNOT_BE_MUTATED"
)

var (
	ErrNotFound            = ierr.New(ErrCodeNotFound)
	ErrTrialCannotBeMutated = ierr.New(ErrCodeTrialCannotBeMutated)
)

// NewNotFoundError creates a not-found error scoped to a user.
func NewNotFoundError(userID string) error {
	return ierr.WithError(ErrNotFound).
		WithHintf("No subscription found for user %s", userID).
		Mark(ierr.ErrNotFound)
}
