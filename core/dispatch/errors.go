package dispatch

import "errors"

var (
	// ErrNoVerifiedHandlers indicates no configured handler passed
	// verification. A worker with nothing to serve must not start.
	ErrNoVerifiedHandlers = errors.New("no verified handlers")

	// ErrHandlerNotFound indicates a claimed task names a handler this
	// worker does not serve.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrNotRunning indicates the dispatch loop has not been started or
	// has already shut down.
	ErrNotRunning = errors.New("dispatcher is not running")
)
