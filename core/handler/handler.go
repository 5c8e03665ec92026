package handler

import (
	"context"
	"net/http"
)

// Context is the request context handlers receive. It carries the
// standard context of the request plus the HTTP specifics the routing
// layer resolved: the raw request and writer, path parameters, and a
// hook for request-scoped values that later middleware or the handler
// can read back through Value.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	SetValue(key, val any)
}

// Response renders the reply. Handlers return one instead of writing
// directly, so middleware can still decorate the response (cookies,
// headers) after the handler ran. A non-nil error goes to the router's
// error handler.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc handles one request with the application's context type.
type HandlerFunc[C Context] func(ctx C) Response

// ErrorHandler renders errors surfaced by handlers or render failures.
type ErrorHandler[C Context] func(ctx C, err error)

// Middleware wraps a handler. Applied outermost-first.
type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]
