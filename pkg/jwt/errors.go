package jwt

import "errors"

// Package-level error definitions for JWT operations.
var (
	ErrInvalidToken            = errors.New("invalid token")
	ErrExpiredToken            = errors.New("token expired")
	ErrInvalidSignature        = errors.New("invalid token signature")
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
	ErrInvalidSigningMethod    = errors.New("invalid signing method")
	ErrMissingSigningKey       = errors.New("missing signing key")
	ErrInvalidSigningKey       = errors.New("invalid signing key")
	ErrInvalidClaims           = errors.New("invalid claims")
	ErrMissingClaims           = errors.New("missing claims")
)
