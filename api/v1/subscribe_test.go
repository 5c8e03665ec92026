package v1_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/task"
)

func TestSubscribeMissingTaskEndsStream(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	r := env.router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/no-such-task", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Empty(t, sseData(t, rec.Body.String()))
}

func TestSubscribeEmitsQueuedSnapshot(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := task.New(env.userID, "echo:1", "hello")
	tsk.Status = task.StatusQueued
	require.NoError(t, env.queue.EnqueueReady(context.Background(), tsk))

	r := env.router()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/"+tsk.ID, nil)
	rec := streamRequest(t, r, req, 300*time.Millisecond)

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 1)

	got, err := task.Decode([]byte(frames[0]))
	require.NoError(t, err)
	assert.Equal(t, tsk.ID, got.ID)
	assert.Equal(t, task.StatusQueued, got.Status)
	assert.Equal(t, 1, got.CurrentPosition)
}

func TestSubscribeEmitsOnlyOnChange(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := task.New(env.userID, "echo:1", "hello")
	tsk.Status = task.StatusQueued
	require.NoError(t, env.queue.EnqueueReady(context.Background(), tsk))

	r := env.router()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/"+tsk.ID, nil)

	// Long enough for a second poll that observes no change.
	rec := streamRequest(t, r, req, 1300*time.Millisecond)

	assert.Len(t, sseData(t, rec.Body.String()), 1)
}

func TestSubscribeTerminalFrame(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, env.userID, "hello", func(tsk *task.Task) {
		tsk.Status = task.StatusCompleted
		tsk.Result = task.Answer{Text: "done"}
	})

	r := env.router()
	rec := httptest.NewRecorder()

	// Terminal tasks close the stream on their own after the final frame.
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/"+tsk.ID, nil))

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 1)

	got, err := task.Decode([]byte(frames[0]))
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Result.Text)
	assert.NotEmpty(t, got.FinishedAt)

	stored, err := env.queue.Task(context.Background(), tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, got.FinishedAt, stored.FinishedAt)
}

func TestSubscribeKeepsExistingFinishTime(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, env.userID, "hello", func(tsk *task.Task) {
		tsk.Status = task.StatusFailed
		tsk.FinishedAt = "2026-01-02T15:04:05Z"
	})

	r := env.router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/"+tsk.ID, nil))

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 1)

	got, err := task.Decode([]byte(frames[0]))
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Equal(t, "2026-01-02T15:04:05Z", got.FinishedAt)
}

func TestSubscribeStreamsToCompletion(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, env.userID, "hello", func(tsk *task.Task) {
		tsk.Status = task.StatusRunning
	})

	go func() {
		time.Sleep(1500 * time.Millisecond)
		done := tsk
		done.Status = task.StatusCompleted
		done.Result = task.Answer{Text: "answer"}
		_ = env.queue.SaveTask(context.Background(), done, queue.LiveTTL)
	}()

	r := env.router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/"+tsk.ID, nil))

	frames := sseData(t, rec.Body.String())
	require.Len(t, frames, 2)

	first, err := task.Decode([]byte(frames[0]))
	require.NoError(t, err)
	assert.Equal(t, task.StatusRunning, first.Status)

	final, err := task.Decode([]byte(frames[1]))
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, final.Status)
	assert.Equal(t, "answer", final.Result.Text)
	assert.NotEmpty(t, final.FinishedAt)
}
