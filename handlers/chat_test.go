package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/handlers"
)

// completionServer fakes the chat completions endpoint, recording the last
// request body.
type completionServer struct {
	srv     *httptest.Server
	lastReq []byte
}

func newCompletionServer(t *testing.T, status int, content string) *completionServer {
	t.Helper()
	cs := &completionServer{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.lastReq, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"model unavailable"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *completionServer) client() openai.Client {
	return openai.NewClient(
		option.WithBaseURL(cs.srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
}

func TestChat_AnswersPrompt(t *testing.T) {
	t.Parallel()

	cs := newCompletionServer(t, http.StatusOK, "  Go — компилируемый язык.\n")
	h := handlers.NewChat(cs.client(), handlers.WithChatModel("gpt-4o"))

	answer, err := h.Invoke(context.Background(), task.New("user-1", "chat:1", "Что такое Go?"))
	require.NoError(t, err)
	assert.Equal(t, "Go — компилируемый язык.", answer.Text)
	assert.Empty(t, answer.RelevantDocs)

	var req struct {
		Model    string `json:"model"`
		MaxTok   int64  `json:"max_tokens"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(cs.lastReq, &req))
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, int64(512), req.MaxTok)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Что такое Go?", req.Messages[1].Content)
}

func TestChat_ModelError(t *testing.T) {
	t.Parallel()

	cs := newCompletionServer(t, http.StatusInternalServerError, "")
	h := handlers.NewChat(cs.client())

	_, err := h.Invoke(context.Background(), task.New("user-1", "chat:1", "hi"))
	require.Error(t, err)
}

func TestChat_EmptyCompletion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	h := handlers.NewChat(client)

	_, err := h.Invoke(context.Background(), task.New("user-1", "chat:1", "hi"))
	assert.ErrorIs(t, err, handlers.ErrEmptyCompletion)
}
