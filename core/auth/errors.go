package auth

import "errors"

var (
	// ErrUnauthenticated indicates a missing, malformed, badly signed, or
	// expired token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRevoked indicates a well-signed token whose server-side session
	// no longer exists or belongs to a different user.
	ErrRevoked = errors.New("token revoked")
)
