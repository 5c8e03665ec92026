package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/router"
	"github.com/promptq/promptq/middleware"
)

// echoClientIP reports what GetClientIP sees inside a handler. Resolution
// rules themselves are covered in pkg/clientip; these tests pin the
// context plumbing.
func echoClientIP() (router.Router[*router.Context], *string) {
	var seen string
	r := router.New[*router.Context]()
	r.Use(middleware.ClientIP[*router.Context]())
	r.Get("/peer", func(ctx *router.Context) handler.Response {
		seen, _ = middleware.GetClientIP(ctx)
		return response.NoContent()
	})
	return r, &seen
}

func TestClientIP_ResolvesProxyChain(t *testing.T) {
	t.Parallel()

	r, seen := echoClientIP()

	req := httptest.NewRequest(http.MethodGet, "/peer", nil)
	req.RemoteAddr = "10.0.0.7:41000"
	req.Header.Set("X-Forwarded-For", "198.51.100.23, 10.0.0.7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "198.51.100.23", *seen)
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	t.Parallel()

	r, seen := echoClientIP()

	req := httptest.NewRequest(http.MethodGet, "/peer", nil)
	req.RemoteAddr = "192.0.2.44:55001"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "192.0.2.44", *seen)
}

func TestGetClientIP_WithoutMiddleware(t *testing.T) {
	t.Parallel()

	var ok bool
	r := router.New[*router.Context]()
	r.Get("/peer", func(ctx *router.Context) handler.Response {
		_, ok = middleware.GetClientIP(ctx)
		return response.NoContent()
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/peer", nil))

	assert.False(t, ok)
}
