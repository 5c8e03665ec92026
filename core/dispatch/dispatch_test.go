package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/dispatch"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

func newEnv(t *testing.T) (*store.Memory, *queue.Manager) {
	t.Helper()
	st := store.NewMemory()
	mgr := queue.New(st, queue.WithBlockTimeout(10*time.Millisecond))
	return st, mgr
}

func echoConfig() task.HandlerConfig {
	return task.HandlerConfig{Name: "Echo", TaskType: "echo", Version: "1"}
}

func resolveTo(h dispatch.Handler) dispatch.Resolver {
	return func(task.HandlerConfig) (dispatch.Handler, bool) { return h, true }
}

// startLoop verifies the echo config against the given handler and runs
// the dispatch loop until the test ends.
func startLoop(t *testing.T, d *dispatch.Dispatcher) {
	t.Helper()
	_, err := d.Verify(context.Background(), []task.HandlerConfig{echoConfig()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx)() }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func enqueue(t *testing.T, mgr *queue.Manager, prompt string) task.Task {
	t.Helper()
	tk := task.New("user-1", "echo:1", prompt)
	tk.Status = task.StatusQueued
	require.NoError(t, mgr.EnqueueReady(context.Background(), tk))
	return tk
}

func TestDispatch_CompletesTask(t *testing.T) {
	t.Parallel()

	st, mgr := newEnv(t)
	echo := dispatch.HandlerFunc(func(_ context.Context, tk task.Task) (task.Answer, error) {
		time.Sleep(time.Millisecond)
		return task.Answer{Text: tk.Prompt}, nil
	})
	d := dispatch.New(mgr, resolveTo(echo))
	startLoop(t, d)

	tk := enqueue(t, mgr, "hi")
	ctx := context.Background()

	require.Eventually(t, func() bool {
		stored, err := mgr.Task(ctx, tk.ID)
		return err == nil && stored.Status == task.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	stored, err := mgr.Task(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Result.Text)
	assert.Greater(t, stored.WorkerProcessingTime, 0.0)
	assert.Zero(t, stored.Retries)

	processing, err := st.LRange(ctx, "processing_queue", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, processing)

	assert.Equal(t, int64(1), d.Stats().Processed)
}

func TestDispatch_MarksRunningWhileExecuting(t *testing.T) {
	t.Parallel()

	st, mgr := newEnv(t)
	release := make(chan struct{})
	var calls atomic.Int64
	blocking := dispatch.HandlerFunc(func(_ context.Context, tk task.Task) (task.Answer, error) {
		if calls.Add(1) == 1 {
			// verification probe
			return task.Answer{}, nil
		}
		<-release
		return task.Answer{Text: tk.Prompt}, nil
	})
	d := dispatch.New(mgr, resolveTo(blocking))
	startLoop(t, d)

	tk := enqueue(t, mgr, "hold")
	ctx := context.Background()

	require.Eventually(t, func() bool {
		stored, err := mgr.Task(ctx, tk.ID)
		return err == nil && stored.Status == task.StatusRunning
	}, time.Second, 5*time.Millisecond)

	processing, err := st.LRange(ctx, "processing_queue", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{tk.ID}, processing)

	close(release)
	require.Eventually(t, func() bool {
		stored, err := mgr.Task(ctx, tk.ID)
		return err == nil && stored.Status == task.StatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestDispatch_RetryExhaustion(t *testing.T) {
	t.Parallel()

	st, mgr := newEnv(t)
	var calls atomic.Int64
	failing := dispatch.HandlerFunc(func(context.Context, task.Task) (task.Answer, error) {
		if calls.Add(1) == 1 {
			// verification probe
			return task.Answer{}, nil
		}
		return task.Answer{}, errors.New("model unavailable")
	})
	d := dispatch.New(mgr, resolveTo(failing), dispatch.WithMaxRetries(3))
	startLoop(t, d)

	tk := enqueue(t, mgr, "doomed")
	ctx := context.Background()

	require.Eventually(t, func() bool {
		stored, err := mgr.Task(ctx, tk.ID)
		return err == nil && stored.Status == task.StatusFailed
	}, time.Second, 5*time.Millisecond)

	stored, err := mgr.Task(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Retries)
	assert.Equal(t, "model unavailable", stored.Error.Text)

	dead, err := st.LRange(ctx, "dead_letters", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{tk.ID}, dead)

	processing, err := st.LRange(ctx, "processing_queue", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, processing)
	ready, err := st.LRange(ctx, "task_queue", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, ready)

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(2), stats.Retried)
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	_, mgr := newEnv(t)
	var calls atomic.Int64
	flaky := dispatch.HandlerFunc(func(_ context.Context, tk task.Task) (task.Answer, error) {
		switch calls.Add(1) {
		case 1:
			// verification probe
			return task.Answer{}, nil
		case 2:
			panic("nil dereference in handler")
		default:
			return task.Answer{Text: tk.Prompt}, nil
		}
	})
	d := dispatch.New(mgr, resolveTo(flaky))
	startLoop(t, d)

	tk := enqueue(t, mgr, "second try")
	ctx := context.Background()

	require.Eventually(t, func() bool {
		stored, err := mgr.Task(ctx, tk.ID)
		return err == nil && stored.Status == task.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	stored, err := mgr.Task(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Retries)
	assert.Equal(t, "second try", stored.Result.Text)
	assert.Equal(t, int64(1), d.Stats().Retried)
}

func TestDispatch_SkipsMissingRecord(t *testing.T) {
	t.Parallel()

	st, mgr := newEnv(t)
	echo := dispatch.HandlerFunc(func(_ context.Context, tk task.Task) (task.Answer, error) {
		return task.Answer{Text: tk.Prompt}, nil
	})
	d := dispatch.New(mgr, resolveTo(echo))
	startLoop(t, d)

	ctx := context.Background()
	require.NoError(t, st.LPush(ctx, "task_queue", "ghost-id"))
	require.NoError(t, st.LPush(ctx, "task_queue:echo:1", "ghost-id"))

	require.Eventually(t, func() bool {
		return d.Stats().Skipped == 1
	}, time.Second, 5*time.Millisecond)

	// The claim already happened, so the orphaned id stays parked in the
	// processing queue until a migration picks it up.
	processing, err := st.LRange(ctx, "processing_queue", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost-id"}, processing)
}

func TestRun_WithoutVerifiedHandlers(t *testing.T) {
	t.Parallel()

	_, mgr := newEnv(t)
	d := dispatch.New(mgr, resolveTo(dispatch.HandlerFunc(nil)))

	err := d.Run(context.Background())()
	assert.ErrorIs(t, err, dispatch.ErrNoVerifiedHandlers)
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	_, mgr := newEnv(t)
	echo := dispatch.HandlerFunc(func(_ context.Context, tk task.Task) (task.Answer, error) {
		return task.Answer{Text: tk.Prompt}, nil
	})
	d := dispatch.New(mgr, resolveTo(echo))

	assert.ErrorIs(t, d.Healthcheck(context.Background()), dispatch.ErrNotRunning)

	startLoop(t, d)
	require.Eventually(t, func() bool {
		return d.Healthcheck(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)
}
