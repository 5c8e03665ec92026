package v1_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/task"
)

type handlersStreamFrame struct {
	AvailableHandlers map[string]int                `json:"available_handlers"`
	Configs           map[string]task.HandlerConfig `json:"configs"`
}

func TestHandlersStreamFirstFrameImmediate(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.fleet.set(
		map[string]int{"echo:1": 2},
		map[string]task.HandlerConfig{
			"echo:1": {Name: "Echo", TaskType: "echo", Version: "1", ImportPath: "handlers:echo"},
		},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/handlers/stream", nil)
	rec := streamRequest(t, env.router(), req, 200*time.Millisecond)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 1)

	var frame handlersStreamFrame
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &frame))
	assert.Equal(t, 2, frame.AvailableHandlers["echo:1"])
	assert.Equal(t, "Echo", frame.Configs["echo:1"].Name)
}

func TestHandlersStreamEmptyFleetStillEmits(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/handlers/stream", nil)
	rec := streamRequest(t, env.router(), req, 200*time.Millisecond)

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"available_handlers":{},"configs":{}}`, frames[0])
}

func TestHandlersStreamEmitsOnChange(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	go func() {
		time.Sleep(time.Second)
		env.fleet.set(
			map[string]int{"chat:2": 1},
			map[string]task.HandlerConfig{
				"chat:2": {Name: "Chat", TaskType: "chat", Version: "2", ImportPath: "handlers:chat"},
			},
		)
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/handlers/stream", nil)
	rec := streamRequest(t, env.router(), req, 3400*time.Millisecond)

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 2)

	var first handlersStreamFrame
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &first))
	assert.Empty(t, first.AvailableHandlers)

	var second handlersStreamFrame
	require.NoError(t, json.Unmarshal([]byte(frames[1]), &second))
	assert.Equal(t, 1, second.AvailableHandlers["chat:2"])
	assert.Equal(t, "Chat", second.Configs["chat:2"].Name)
}
