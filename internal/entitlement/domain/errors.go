package domain

import "errors"

var (
	// ErrMalformedExpiry marks a stored expiry that can no longer be
	// parsed. Callers skip the affected row instead of failing wholesale.
	ErrMalformedExpiry = errors.New("malformed_expiry")
)
