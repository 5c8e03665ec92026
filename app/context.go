package app

import (
	"context"
	"net/http"
	"time"

	"github.com/promptq/promptq/middleware"
)

// Context is the request context for every route the application mounts.
// It implements handler.Context and adds session helpers on top.
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

// SetValue stores a value in the request's context for downstream handlers.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}

func (c *Context) Request() *http.Request            { return c.r }
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// Param returns the URL parameter for key, or "" when absent.
func (c *Context) Param(key string) string {
	if c.params == nil {
		return ""
	}
	return c.params[key]
}

// UserID returns the authenticated user's ID, or "" on anonymous requests.
func (c *Context) UserID() string {
	id, _ := middleware.GetUserID(c)
	return id
}
