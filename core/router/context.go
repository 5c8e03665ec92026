package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the request context served when the router is
// instantiated over no custom type. The context.Context half delegates
// to the request, so deadlines and cancellation follow the connection.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{w: w, r: r, params: params}
}

func (c *Context) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *Context) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *Context) Err() error                  { return c.r.Context().Err() }
func (c *Context) Value(key any) any           { return c.r.Context().Value(key) }

// SetValue stores val on the request context, visible to later Value
// calls and to anything reading the request's own context.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}

// Request returns the request being served.
func (c *Context) Request() *http.Request { return c.r }

// ResponseWriter returns the writer for this request's response.
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// Param returns the path parameter captured under key, or the empty
// string when the route has no such parameter.
func (c *Context) Param(key string) string { return c.params[key] }
