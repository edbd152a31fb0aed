// Package api provides the REST client for the Legalis assistant backend.
package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNetwork indicates a transport-level failure: the request never
	// produced an HTTP response (connection refused, timeout, DNS).
	ErrNetwork = errors.New("network failure")

	// ErrServer indicates an HTTP-level failure or a success:false
	// envelope from the backend.
	ErrServer = errors.New("server error")

	// ErrUnauthorized indicates the backend rejected the bearer token.
	// The sign-in redirect is the caller's concern.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidData indicates a well-formed response missing required
	// identity fields. Such payloads are rejected rather than displayed.
	ErrInvalidData = errors.New("invalid session payload")
)

// wrapTransportError wraps a failed round trip with the network sentinel.
func wrapTransportError(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// wrapServerError wraps an HTTP or envelope failure with the server
// sentinel. The message is whatever the backend surfaced.
func wrapServerError(msg string) error {
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Errorf("%w: %s", ErrServer, msg)
}
