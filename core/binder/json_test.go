package binder_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/binder"
)

type enqueuePayload struct {
	Prompt    string `json:"prompt"`
	HandlerID string `json:"handler_id"`
	IsFirst   bool   `json:"is_first"`
}

func TestJSON_BindsBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(
		`{"prompt":"what is go?","handler_id":"chat:1","is_first":true}`))
	req.Header.Set("Content-Type", "application/json")

	var payload enqueuePayload
	require.NoError(t, binder.JSON()(req, &payload))
	assert.Equal(t, "what is go?", payload.Prompt)
	assert.Equal(t, "chat:1", payload.HandlerID)
	assert.True(t, payload.IsFirst)
}

func TestJSON_AcceptsCharsetParameter(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var payload enqueuePayload
	require.NoError(t, binder.JSON()(req, &payload))
	assert.Equal(t, "hi", payload.Prompt)
}

func TestJSON_RejectsMissingContentType(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(`{"prompt":"hi"}`))

	var payload enqueuePayload
	err := binder.JSON()(req, &payload)
	assert.ErrorIs(t, err, binder.ErrMissingContentType)
}

func TestJSON_RejectsWrongContentType(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")

	var payload enqueuePayload
	err := binder.JSON()(req, &payload)
	assert.ErrorIs(t, err, binder.ErrUnsupportedMediaType)
}

func TestJSON_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(`{"prompt":"hi","bogus":1}`))
	req.Header.Set("Content-Type", "application/json")

	var payload enqueuePayload
	err := binder.JSON()(req, &payload)
	assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
}

func TestJSON_RejectsTrailingData(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(`{"prompt":"hi"} {"again":true}`))
	req.Header.Set("Content-Type", "application/json")

	var payload enqueuePayload
	err := binder.JSON()(req, &payload)
	assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
}

func TestJSON_RejectsEmptyBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")

	var payload enqueuePayload
	err := binder.JSON()(req, &payload)
	assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
}

func TestJSON_SanitizesStrings(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/enqueue", strings.NewReader(
		`{"prompt":"line one\nline two\u0000\u0007 end"}`))
	req.Header.Set("Content-Type", "application/json")

	var payload enqueuePayload
	require.NoError(t, binder.JSON()(req, &payload))
	// NUL and BEL are stripped, the line break survives.
	assert.Equal(t, "line one\nline two end", payload.Prompt)
}
