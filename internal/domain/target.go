package domain

import "errors"

// Domain errors - defining errors as package-level values makes them
// testable and lets callers check for specific outcomes with errors.Is
var (
	// ErrTargetNotFound means the identifier has no row in the store.
	// This is an expected outcome, not a store failure.
	ErrTargetNotFound = errors.New("redirect target not found")

	// ErrOverridesNotFound means the affiliate has no override record.
	ErrOverridesNotFound = errors.New("affiliate overrides not found")
)

// RedirectTarget maps a tracking identifier to a destination URL.
// Rows are owned by the backing store; the core only ever reads them.
type RedirectTarget struct {
	Identifier     string // The short identifier looked up from the "id" parameter
	DestinationURL string // Where the client is sent on an accepted click
	Active         bool   // Inactive targets behave exactly like missing ones
}

// CanRedirect reports whether the target is servable. An inactive
// target is treated the same as not-found: the click is logged but the
// client gets an empty success response.
func (t *RedirectTarget) CanRedirect() bool {
	return t.Active && t.DestinationURL != ""
}
