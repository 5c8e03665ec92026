package store

import "errors"

// Package-level error definitions for store operations.
var (
	ErrNotFound = errors.New("key not found")
)
