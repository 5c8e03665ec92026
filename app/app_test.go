package app_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/app"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	cfg := app.Defaults()
	cfg.SecretKey = "app-test-secret"
	cfg.FeedbackFile = filepath.Join(t.TempDir(), "feedback.json")

	a, err := app.New(context.Background(), cfg,
		app.WithStore(store.NewMemory()),
		app.WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	return a
}

// sessionCookie fetches a guest session from the bootstrap endpoint.
func sessionCookie(t *testing.T, a *app.App) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookie {
			return c
		}
	}
	t.Fatal("bootstrap did not set the session cookie")
	return nil
}

func TestBootstrap_NewGuest(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, middleware.AccessTokenCookie, c.Name)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 90*24*3600, c.MaxAge)
}

func TestBootstrap_ReturningSession(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	c := sessionCookie(t, a)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, c.Value, cookies[0].Value, "a live session keeps its token")
}

func TestBootstrap_StaleTokenGetsNewGuest(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: "not-a-jwt"})
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "not-a-jwt", cookies[0].Value)
}

func TestHealth_Live(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
}

func TestHealth_ReadyRequiresReconcileLoop(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	// The reconcile loop is not running, so the node must not be ready.
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_RequiresSession(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	body := strings.NewReader(`{"prompt":"hi","handler_id":"echo:1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enqueue", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_EnqueueWithoutWorkersParksTask(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	c := sessionCookie(t, a)

	body := strings.NewReader(`{"prompt":"hi","handler_id":"echo:1","is_first":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enqueue", body)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(c)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TaskID      string `json:"task_id"`
		ShortTaskID string `json:"short_task_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.NotEmpty(t, resp.ShortTaskID)
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	origin := "http://0.0.0.0:3000"

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/enqueue", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_RejectsForeignOrigin(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/enqueue", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
