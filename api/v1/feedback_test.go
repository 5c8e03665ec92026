package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/promptq/promptq/api/v1"
	"github.com/promptq/promptq/core/router"
	"github.com/promptq/promptq/core/task"
)

func TestTaskFeedbackUpdatesRecord(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, env.userID, "rate me", func(tsk *task.Task) {
		tsk.Status = task.StatusCompleted
		tsk.Result = task.Answer{Text: "answer"}
	})

	r := env.router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, env.request(http.MethodPost, "/api/v1/feedback/"+tsk.ID,
		`{"feedback":"like"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.queue.Task(context.Background(), tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.FeedbackLike, stored.Feedback)

	// Only the feedback field moves.
	assert.Equal(t, tsk.Prompt, stored.Prompt)
	assert.Equal(t, tsk.Status, stored.Status)
	assert.Equal(t, tsk.Result.Text, stored.Result.Text)
}

func TestTaskFeedbackForbiddenForStrangers(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, "someone-else", "not yours", nil)

	r := env.router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, env.request(http.MethodPost, "/api/v1/feedback/"+tsk.ID,
		`{"feedback":"dislike"}`))

	require.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := env.queue.Task(context.Background(), tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.FeedbackNeutral, stored.Feedback)
}

func TestTaskFeedbackMissingTask(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	r := env.router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, env.request(http.MethodPost, "/api/v1/feedback/no-such-task",
		`{"feedback":"like"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskFeedbackRejectsUnknownValue(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, env.userID, "rate me", nil)

	r := env.router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, env.request(http.MethodPost, "/api/v1/feedback/"+tsk.ID,
		`{"feedback":"love"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := env.queue.Task(context.Background(), tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.FeedbackNeutral, stored.Feedback)
}

func TestTaskFeedbackRequiresAuth(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	tsk := env.seedTask(t, env.userID, "rate me", nil)

	r := env.router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, anonRequest(http.MethodPost, "/api/v1/feedback/"+tsk.ID,
		`{"feedback":"like"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFeedbackAppendsEntries(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	r := env.router()

	for _, body := range []string{
		`{"text":"great tool","contact":"a@example.com"}`,
		`{"text":"needs dark mode"}`,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, anonRequest(http.MethodPost, "/api/v1/feedback", body))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp v1.FeedbackResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "Feedback received", resp.Message)
	}

	data, err := os.ReadFile(env.feedbackPath)
	require.NoError(t, err)

	var entries []v1.FeedbackEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "great tool", entries[0].Text)
	assert.Equal(t, "a@example.com", entries[0].Contact)
	assert.NotEmpty(t, entries[0].Timestamp)

	assert.Equal(t, "needs dark mode", entries[1].Text)
	assert.Empty(t, entries[1].Contact)
	assert.NotEmpty(t, entries[1].Timestamp)
}

func TestFeedbackWriteFailure(t *testing.T) {
	t.Parallel()

	sink := v1.NewFeedbackFile(filepath.Join(t.TempDir(), "missing-dir", "feedback.json"))

	r := router.New[*router.Context]()
	r.Post("/feedback", v1.Feedback[*router.Context](sink))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, anonRequest(http.MethodPost, "/feedback", `{"text":"lost"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFeedbackFileAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feedback.json")
	sink := v1.NewFeedbackFile(path)

	require.NoError(t, sink.Append(v1.FeedbackEntry{Text: "one", Timestamp: "t1"}))
	require.NoError(t, sink.Append(v1.FeedbackEntry{Text: "two", Contact: "x", Timestamp: "t2"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []v1.FeedbackEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Text)
	assert.Equal(t, "two", entries[1].Text)
	assert.Equal(t, "x", entries[1].Contact)
}

func TestFeedbackFileRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	sink := v1.NewFeedbackFile(path)
	assert.Error(t, sink.Append(v1.FeedbackEntry{Text: "entry"}))
}
