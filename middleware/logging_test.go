package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/router"
	"github.com/promptq/promptq/middleware"
)

func captureLog() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, nil)), buf
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines[len(lines)-1], "expected at least one log line")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func loggedRouter(cfg middleware.LoggingConfig, fn handler.HandlerFunc[*router.Context]) router.Router[*router.Context] {
	r := router.New[*router.Context]()
	r.Use(middleware.LoggingWithConfig[*router.Context](cfg))
	r.Get("/tasks", fn)
	return r
}

func TestLogging_LogsCompletedRequest(t *testing.T) {
	t.Parallel()

	log, buf := captureLog()
	r := loggedRouter(middleware.LoggingConfig{Logger: log}, func(*router.Context) handler.Response {
		return response.String("two tasks pending")
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.RemoteAddr = "192.0.2.1:44821"
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastLogLine(t, buf)
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, http.MethodGet, entry["method"])
	assert.Equal(t, "/tasks", entry["path"])
	assert.Equal(t, "192.0.2.1:44821", entry["peer"], "raw peer address without the client ip middleware")
	assert.EqualValues(t, http.StatusOK, entry["status_code"])
	assert.EqualValues(t, len("two tasks pending"), entry["bytes_out"])
	assert.Contains(t, entry, "duration")
}

func TestLogging_ErrorResponsesLogTheRenderedStatus(t *testing.T) {
	t.Parallel()

	log, buf := captureLog()
	r := loggedRouter(middleware.LoggingConfig{Logger: log}, func(*router.Context) handler.Response {
		return response.Error(response.ErrUnprocessableEntity)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	// The error handler renders after this middleware runs; the log line
	// must still report what the client actually received.
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	entry := lastLogLine(t, buf)
	assert.EqualValues(t, http.StatusUnprocessableEntity, entry["status_code"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry, "error")
}

func TestLogging_ServerErrorsEscalate(t *testing.T) {
	t.Parallel()

	log, buf := captureLog()
	r := loggedRouter(middleware.LoggingConfig{Logger: log}, func(*router.Context) handler.Response {
		return response.Error(errors.New("queue unreachable"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks", nil))

	entry := lastLogLine(t, buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.EqualValues(t, http.StatusInternalServerError, entry["status_code"])
	assert.Equal(t, "queue unreachable", entry["error"])
}

func TestLogging_SlowRequestsWarn(t *testing.T) {
	t.Parallel()

	log, buf := captureLog()
	r := loggedRouter(middleware.LoggingConfig{
		Logger:               log,
		SlowRequestThreshold: time.Nanosecond,
	}, func(*router.Context) handler.Response {
		time.Sleep(time.Millisecond)
		return response.NoContent()
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks", nil))

	entry := lastLogLine(t, buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, true, entry["slow_request"])
}

func TestLogging_SkipSuppressesOutput(t *testing.T) {
	t.Parallel()

	log, buf := captureLog()
	r := loggedRouter(middleware.LoggingConfig{
		Logger: log,
		Skip: func(ctx handler.Context) bool {
			return strings.HasPrefix(ctx.Request().URL.Path, "/tasks")
		},
	}, func(*router.Context) handler.Response {
		return response.NoContent()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, buf.Len(), "skipped requests should not be logged")
}

func TestLogging_IncludesRequestID(t *testing.T) {
	t.Parallel()

	log, buf := captureLog()
	r := router.New[*router.Context]()
	r.Use(
		middleware.RequestID[*router.Context](),
		middleware.LoggingWithConfig[*router.Context](middleware.LoggingConfig{Logger: log}),
	)
	r.Get("/tasks", func(*router.Context) handler.Response { return response.NoContent() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	entry := lastLogLine(t, buf)
	assert.Equal(t, w.Header().Get("X-Request-ID"), entry["request_id"])
	assert.NotEmpty(t, entry["request_id"])
}
