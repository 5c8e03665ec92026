package ratelimiter

import "errors"

var (
	// ErrInvalidConfig rejects unusable bucket parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTokenCount rejects a consume request that is not positive
	// or exceeds the bucket capacity.
	ErrInvalidTokenCount = errors.New("invalid token count")
)
