package coldstore

import "errors"

var (
	// ErrNotRunning means the replication loop has not started or already
	// stopped.
	ErrNotRunning = errors.New("cold store replicator is not running")
	// ErrInvalidIdentifier means a configured schema or table name is not a
	// plain SQL identifier.
	ErrInvalidIdentifier = errors.New("invalid warehouse identifier")
)
