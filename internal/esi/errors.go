package esi

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a 404 from ESI. Callers decide whether that is fatal;
// for contract item manifests it means the contract vanished upstream and
// the manifest is simply skipped.
var ErrNotFound = errors.New("esi: not found")

// AuthError means the access token was rejected or could not be refreshed.
// Permanent: retrying with the same credentials cannot succeed.
type AuthError struct {
	Status int // HTTP status, zero when refresh itself failed
	Msg    string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("esi auth rejected (HTTP %d): %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("esi auth: %s", e.Msg)
}

// RateLimitError means ESI throttled the request (HTTP 420 or 429).
// RetryAfter carries the server's reset hint when one was given.
type RateLimitError struct {
	Status     int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("esi rate limited (HTTP %d), reset in %s", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("esi rate limited (HTTP %d)", e.Status)
}

// TransportError is a network failure or server-side (5xx) error. Transient:
// the request is retried with backoff up to the attempt budget.
type TransportError struct {
	Status int // zero for network-level failures
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("esi server error (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("esi transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
