package shared

import "errors"

var (
	// ErrIdempotencyKeyInvalid indicates a malformed Idempotency-Key header.
	ErrIdempotencyKeyInvalid = errors.New("idempotency key invalid")
)
