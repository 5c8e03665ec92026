package v1_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/promptq/promptq/api/v1"
	"github.com/promptq/promptq/core/auth"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/reconciler"
	"github.com/promptq/promptq/core/router"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/middleware"
	"github.com/promptq/promptq/pkg/jwt"
)

// apiEnv wires the API against in-memory backing services with one
// authenticated guest session.
type apiEnv struct {
	store        store.Store
	queue        *queue.Manager
	auth         *auth.Service
	fleet        *stubFleet
	sink         *v1.FeedbackFile
	feedbackPath string
	token        string
	userID       string
}

func newEnv(t *testing.T) *apiEnv {
	t.Helper()

	st := store.NewMemory()
	signer, err := jwt.NewFromString("api-test-secret")
	require.NoError(t, err)
	svc := auth.New(st, signer)

	token, userID, err := svc.IssueGuest(context.Background())
	require.NoError(t, err)

	feedbackPath := filepath.Join(t.TempDir(), "feedback.json")

	return &apiEnv{
		store:        st,
		queue:        queue.New(st),
		auth:         svc,
		fleet:        newStubFleet(),
		sink:         v1.NewFeedbackFile(feedbackPath),
		feedbackPath: feedbackPath,
		token:        token,
		userID:       userID,
	}
}

// router mounts the full v1 surface the way the application does: open
// streaming and feedback endpoints, everything else behind auth.
func (e *apiEnv) router() router.Router[*router.Context] {
	log := slog.New(slog.DiscardHandler)

	r := router.New[*router.Context]()
	r.Route("/api/v1", func(api router.Router[*router.Context]) {
		api.Get("/subscribe/{task_id}", v1.Subscribe[*router.Context](e.queue, log))
		api.Get("/handlers/stream", v1.HandlersStream[*router.Context](e.fleet))
		api.Post("/feedback", v1.Feedback[*router.Context](e.sink))

		api.Group(func(authed router.Router[*router.Context]) {
			authed.Use(middleware.Auth[*router.Context](e.auth))
			authed.Post("/enqueue", v1.Enqueue[*router.Context](e.queue, e.fleet))
			authed.Post("/feedback/{task_id}", v1.TaskFeedback[*router.Context](e.queue))
			authed.Get("/tasks", v1.Tasks[*router.Context](e.queue))
			authed.Get("/first-tasks", v1.FirstTasks[*router.Context](e.queue))
		})
	})
	return r
}

// request builds an authenticated request carrying the session cookie.
func (e *apiEnv) request(method, target, body string) *http.Request {
	req := anonRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: e.token})
	return req
}

func anonRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// seedTask stores a task record directly, bypassing the enqueue endpoint.
func (e *apiEnv) seedTask(t *testing.T, userID, prompt string, mutate func(*task.Task)) task.Task {
	t.Helper()

	tsk := task.New(userID, "echo:1", prompt)
	if mutate != nil {
		mutate(&tsk)
	}
	require.NoError(t, e.queue.SaveTask(context.Background(), tsk, queue.LiveTTL))
	return tsk
}

// streamRequest serves an SSE request until wait elapses, then returns
// whatever was written. Streams that terminate on their own return
// earlier.
func streamRequest(t *testing.T, h http.Handler, req *http.Request, wait time.Duration) *httptest.ResponseRecorder {
	t.Helper()

	ctx, cancel := context.WithTimeout(req.Context(), wait)
	defer cancel()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

// sseData extracts the payload of every data frame in an SSE body,
// skipping comments and keepalives.
func sseData(t *testing.T, body string) []string {
	t.Helper()

	var frames []string
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			frames = append(frames, data)
		}
	}
	return frames
}

// stubFleet is a hand-rolled availability view for routing tests.
type stubFleet struct {
	mu       sync.Mutex
	handlers map[string]int
	configs  map[string]task.HandlerConfig
}

func newStubFleet() *stubFleet {
	return &stubFleet{
		handlers: map[string]int{},
		configs:  map[string]task.HandlerConfig{},
	}
}

// set replaces the whole view. Maps are not copied; callers hand over
// ownership.
func (f *stubFleet) set(handlers map[string]int, configs map[string]task.HandlerConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if handlers == nil {
		handlers = map[string]int{}
	}
	if configs == nil {
		configs = map[string]task.HandlerConfig{}
	}
	f.handlers = handlers
	f.configs = configs
}

func (f *stubFleet) Available(handlerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[handlerID]
	return ok
}

func (f *stubFleet) Snapshot() *reconciler.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &reconciler.Snapshot{Handlers: f.handlers, Configs: f.configs}
}
