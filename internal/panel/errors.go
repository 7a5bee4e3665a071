package panel

import ierr "github.com/vpnbroker/broker/internal/errors"

// newTransientError wraps a retried-out transport/5xx failure — the caller
// may retry the whole operation later (§4.4 step 6: never abort a
// committed DB change just because the panel call that follows it fails).
func newTransientError(err error, hint string) error {
	return ierr.WithError(err).WithHint(hint).Mark(ierr.ErrPanelTransient)
}

// newPermanentError wraps a 4xx response — retrying would just repeat it.
func newPermanentError(statusCode int, body []byte, hint string) error {
	return ierr.NewError("panel rejected request").
		WithHintf("%s (status %d)", hint, statusCode).
		WithReportableDetails(map[string]any{"status_code": statusCode, "body": string(body)}).
		Mark(ierr.ErrPanelPermanent)
}

// ierrIsPermanent reports whether err was produced by newPermanentError —
// HealthCheck treats a permanent rejection of its probe as "down", not as
// a call failure the caller must handle.
func ierrIsPermanent(err error) bool {
	return ierr.Is(err, ierr.ErrPanelPermanent)
}
