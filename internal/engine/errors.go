// Package engine implements the chat-session consistency engine: the
// session store, quota gate, message dispatcher and session lifecycle
// manager that reconcile locally-optimistic conversation state with the
// server-held source of truth.
package engine

import "errors"

// Sentinel errors for engine operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrQuotaExceeded indicates the user's monthly query allowance is
	// used up. No network call is attempted in this case.
	ErrQuotaExceeded = errors.New("monthly query quota exceeded")

	// ErrUnknownPlan indicates a subscription tier the quota table has
	// no entry for. Unknown plans are rejected explicitly instead of
	// falling back to an arbitrary numeric limit.
	ErrUnknownPlan = errors.New("unknown subscription plan")

	// ErrNoUser indicates no authenticated user is available to the
	// quota gate.
	ErrNoUser = errors.New("no authenticated user")

	// ErrSendInFlight indicates a send was attempted while another one
	// is still pending. Sends are serialized, never queued.
	ErrSendInFlight = errors.New("a send is already in flight")

	// ErrEmptyMessage indicates the message text was empty after
	// trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInvalidRating indicates a satisfaction rating outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
