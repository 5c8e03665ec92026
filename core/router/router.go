package router

import (
	"net/http"

	"github.com/promptq/promptq/core/handler"
)

// Router registers handlers against URL patterns and serves HTTP with a
// typed per-request context. Route and Group hand out views that share
// the same routing tree, so registration order is the only order that
// matters.
type Router[C handler.Context] interface {
	http.Handler

	Get(pattern string, fn handler.HandlerFunc[C])
	Post(pattern string, fn handler.HandlerFunc[C])
	Put(pattern string, fn handler.HandlerFunc[C])
	Delete(pattern string, fn handler.HandlerFunc[C])
	Options(pattern string, fn handler.HandlerFunc[C])

	// Use appends middleware applied to every route registered after
	// the call on this router or its views.
	Use(mw ...handler.Middleware[C])

	// Group calls fn with a view sharing the current prefix, letting it
	// layer middleware without affecting sibling routes.
	Group(fn func(r Router[C]))

	// Route calls fn with a view anchored under prefix.
	Route(prefix string, fn func(r Router[C]))
}

// New builds a Router for the context type C. Instantiations over the
// built-in *Context work out of the box; custom context types must
// supply WithContextFactory.
func New[C handler.Context](opts ...Option[C]) Router[C] {
	return newMux[C](opts...)
}
