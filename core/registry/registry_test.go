package registry_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/registry"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

var echoConfig = task.HandlerConfig{
	Name:       "Echo",
	TaskType:   "echo",
	ImportPath: "handlers:echo",
	Version:    "1",
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New(st)

	workerID, err := reg.Register(ctx, []task.HandlerConfig{echoConfig})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(workerID, "worker:"))

	payload, err := st.Get(ctx, workerID)
	require.NoError(t, err)
	var advertised []string
	require.NoError(t, json.Unmarshal([]byte(payload), &advertised))
	assert.Equal(t, []string{"echo:1"}, advertised)

	workers, err := st.LRange(ctx, "workers", 0, -1)
	require.NoError(t, err)
	assert.Contains(t, workers, workerID)

	configs, err := reg.HandlerConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, echoConfig, configs["echo:1"])
}

func TestRegister_StoredConfigWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New(st)

	stored := echoConfig
	stored.Description = "the canonical description"
	raw, err := json.Marshal(map[string]task.HandlerConfig{"echo:1": stored})
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, "handlers_configs", string(raw), 0))

	local := echoConfig
	local.Description = "a newer local description"
	_, err = reg.Register(ctx, []task.HandlerConfig{local})
	require.NoError(t, err)

	configs, err := reg.HandlerConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "the canonical description", configs["echo:1"].Description)
}

func TestLiveHandlers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New(st)

	searchConfig := task.HandlerConfig{Name: "Search", TaskType: "search", Version: "2"}

	w1, err := reg.Register(ctx, []task.HandlerConfig{echoConfig})
	require.NoError(t, err)
	_, err = reg.Register(ctx, []task.HandlerConfig{echoConfig, searchConfig})
	require.NoError(t, err)

	live, err := reg.LiveHandlers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"echo:1": 2, "search:2": 1}, live)

	require.NoError(t, reg.Deregister(ctx, w1))

	live, err = reg.LiveHandlers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"echo:1": 1, "search:2": 1}, live)
}

func TestLiveHandlers_ExpiredWorkersFiltered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New(st, registry.WithWorkerTTL(30*time.Millisecond))

	_, err := reg.Register(ctx, []task.HandlerConfig{echoConfig})
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	live, err := reg.LiveHandlers(ctx)
	require.NoError(t, err)
	assert.Empty(t, live, "expired worker keys advertise nothing")

	workers, err := st.LRange(ctx, "workers", 0, -1)
	require.NoError(t, err)
	assert.Len(t, workers, 1, "the workers list is append-only")
}

func TestLiveHandlers_SkipsUnreadablePayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New(st)

	_, err := reg.Register(ctx, []task.HandlerConfig{echoConfig})
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, "worker:broken", "{oops", time.Minute))
	require.NoError(t, st.LPush(ctx, "workers", "worker:broken"))

	live, err := reg.LiveHandlers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"echo:1": 1}, live)
}

func TestHandlerConfigs_DegradesOnGarbage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	reg := registry.New(st)

	configs, err := reg.HandlerConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, configs, "missing key yields an empty map")

	require.NoError(t, st.Set(ctx, "handlers_configs", "not json at all", 0))
	configs, err = reg.HandlerConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, configs, "malformed value degrades instead of failing")
}

func TestRunHeartbeat_KeepsWorkerAlive(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	reg := registry.New(st,
		registry.WithWorkerTTL(80*time.Millisecond),
		registry.WithHeartbeatInterval(25*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerID, err := reg.Register(ctx, []task.HandlerConfig{echoConfig})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- reg.RunHeartbeat(ctx, workerID)() }()

	// Well past the TTL: without heartbeats the key would be gone.
	time.Sleep(200 * time.Millisecond)
	live, err := reg.LiveHandlers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"echo:1": 1}, live)

	cancel()
	require.NoError(t, <-done)

	_, err = st.Get(context.Background(), workerID)
	assert.ErrorIs(t, err, store.ErrNotFound, "shutdown deletes the worker key")
}

func TestRunHeartbeat_SurvivesStoreErrors(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	reg := registry.New(st,
		registry.WithWorkerTTL(50*time.Millisecond),
		registry.WithHeartbeatInterval(20*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Heartbeat on a key that never existed: every Expire fails, but the
	// loop must keep running until cancelled.
	done := make(chan error, 1)
	go func() { done <- reg.RunHeartbeat(ctx, "worker:ghost")() }()

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("heartbeat loop exited early: %v", err)
	default:
	}

	cancel()
	require.NoError(t, <-done)
}
