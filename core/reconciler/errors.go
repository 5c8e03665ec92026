package reconciler

import "errors"

var (
	// ErrNotRunning indicates the reconcile loop has not been started
	// or has already shut down.
	ErrNotRunning = errors.New("reconciler is not running")
)
