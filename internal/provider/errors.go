package provider

import "errors"

// ErrorKind classifies API failures so the sync layer can decide whether to
// refresh, back off, retry next tick, or park the account.
type ErrorKind int

const (
	// KindNetwork is a transient transport failure, eligible for retry on
	// the next scheduling tick. Never retried in a tight loop.
	KindNetwork ErrorKind = iota

	// KindUnauthorized means the access token was rejected. The caller may
	// refresh and retry exactly once within the same cycle.
	KindUnauthorized

	// KindRateLimited means the provider asked us to back off. The cycle
	// fails without an immediate retry.
	KindRateLimited

	// KindAuthExpired means the refresh token itself is invalid or revoked.
	// Terminal for the account until the user re-authorizes.
	KindAuthExpired

	// KindMalformed is an unexpected response shape. Logged and treated as a
	// failure for this cycle only; the account stays valid.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthExpired:
		return "auth_expired"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error wraps an underlying failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind extracts the classification from err. Unclassified errors (context
// cancellation, transport failures outside the client) count as network.
func Kind(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNetwork
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
