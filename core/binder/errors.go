package binder

import "errors"

// Binding failures, matchable with errors.Is. Handlers map these to 4xx
// responses instead of leaking decoder internals to clients.
var (
	ErrMissingContentType   = errors.New("missing content type")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
)
