package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

const (
	workersKey         = "workers"
	workerKeyPrefix    = "worker:"
	handlersConfigsKey = "handlers_configs"

	defaultWorkerTTL         = 30 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	deregisterTimeout        = 5 * time.Second
)

// Registry announces workers to the fleet and reads the fleet back.
//
// A worker is a key worker:{unix_nanos} holding the JSON array of handler
// ids it advertises, kept alive by heartbeat TTL refreshes. The workers
// list is append-only: entries whose key expired are simply skipped on
// read, so a crashed worker disappears within one TTL without any
// explicit cleanup.
type Registry struct {
	store     store.Store
	log       *slog.Logger
	ttl       time.Duration
	heartbeat time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for heartbeat and read warnings.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithWorkerTTL overrides the worker key lifetime. Mainly for tests.
func WithWorkerTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithHeartbeatInterval overrides how often the heartbeat refreshes the
// worker key. Must stay below the worker TTL. Mainly for tests.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(r *Registry) {
		if interval > 0 {
			r.heartbeat = interval
		}
	}
}

// New creates a registry on the given store.
func New(st store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:     st,
		log:       slog.Default(),
		ttl:       defaultWorkerTTL,
		heartbeat: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register announces a worker and its verified handlers in one pipeline:
// the fleet-wide config map is updated (stored entries win, new handlers
// are added), the worker key is written with its TTL, and the worker id
// is appended to the workers list. Returns the allocated worker id.
func (r *Registry) Register(ctx context.Context, configs []task.HandlerConfig) (string, error) {
	workerID := fmt.Sprintf("%s%d", workerKeyPrefix, time.Now().UnixNano())

	merged, err := r.mergedConfigs(ctx, configs)
	if err != nil {
		return "", err
	}
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("encode handler configs: %w", err)
	}

	handlerIDs := make([]string, len(configs))
	for i, cfg := range configs {
		handlerIDs[i] = cfg.HandlerID()
	}
	advertised, err := json.Marshal(handlerIDs)
	if err != nil {
		return "", fmt.Errorf("encode advertised handlers: %w", err)
	}

	err = r.store.Pipeline(ctx, func(p store.Pipe) error {
		p.Set(handlersConfigsKey, string(mergedJSON), 0)
		p.Set(workerID, string(advertised), r.ttl)
		p.LPush(workersKey, workerID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("register worker: %w", err)
	}

	r.log.InfoContext(ctx, "worker registered",
		logger.Component("registry"),
		logger.WorkerID(workerID),
		logger.Count("handlers", len(handlerIDs)),
	)
	return workerID, nil
}

// Deregister drops the worker key immediately instead of waiting for the
// TTL. The workers list entry stays behind; readers filter it out.
func (r *Registry) Deregister(ctx context.Context, workerID string) error {
	if err := r.store.Del(ctx, workerID); err != nil {
		return fmt.Errorf("deregister worker: %w", err)
	}
	r.log.InfoContext(ctx, "worker deregistered",
		logger.Component("registry"),
		logger.WorkerID(workerID),
	)
	return nil
}

// RunHeartbeat returns an errgroup-compatible runner that refreshes the
// worker key TTL on every tick. Store errors are logged and retried on
// the next tick; a single hiccup must not deregister a live worker. On
// cancellation the worker key is deleted so the fleet sees the departure
// right away.
func (r *Registry) RunHeartbeat(ctx context.Context, workerID string) func() error {
	return func() error {
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
				defer cancel()
				if err := r.Deregister(shutdownCtx, workerID); err != nil {
					r.log.Warn("failed to deregister on shutdown",
						logger.Component("registry"),
						logger.WorkerID(workerID),
						logger.Error(err),
					)
				}
				return nil
			case <-ticker.C:
				if err := r.store.Expire(ctx, workerID, r.ttl); err != nil {
					r.log.WarnContext(ctx, "heartbeat failed",
						logger.Component("registry"),
						logger.WorkerID(workerID),
						logger.Error(err),
					)
				}
			}
		}
	}
}

// LiveHandlers aggregates the advertised handler lists of every live
// worker into handler id → worker count. Expired workers contribute
// nothing; unreadable payloads are logged and skipped.
func (r *Registry) LiveHandlers(ctx context.Context) (map[string]int, error) {
	workerIDs, err := r.store.LRange(ctx, workersKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	counts := make(map[string]int)
	for _, workerID := range workerIDs {
		payload, err := r.store.Get(ctx, workerID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read worker %s: %w", workerID, err)
		}

		var handlerIDs []string
		if err := json.Unmarshal([]byte(payload), &handlerIDs); err != nil {
			r.log.WarnContext(ctx, "skipping worker with unreadable handler list",
				logger.Component("registry"),
				logger.WorkerID(workerID),
				logger.Error(err),
			)
			continue
		}
		for _, h := range handlerIDs {
			counts[h]++
		}
	}
	return counts, nil
}

// HandlerConfigs loads the fleet-wide handler config map. A missing or
// malformed value degrades to an empty map with a warning; only store
// failures surface as errors.
func (r *Registry) HandlerConfigs(ctx context.Context) (map[string]task.HandlerConfig, error) {
	payload, err := r.store.Get(ctx, handlersConfigsKey)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]task.HandlerConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read handler configs: %w", err)
	}

	var configs map[string]task.HandlerConfig
	if err := json.Unmarshal([]byte(payload), &configs); err != nil {
		r.log.WarnContext(ctx, "handler configs unreadable, using empty set",
			logger.Component("registry"),
			logger.Error(err),
		)
		return map[string]task.HandlerConfig{}, nil
	}
	if configs == nil {
		configs = map[string]task.HandlerConfig{}
	}
	return configs, nil
}

// mergedConfigs unions the stored config map with the worker's local
// configs. Stored entries win so a fleet-wide description is not
// clobbered by a worker running an older build.
func (r *Registry) mergedConfigs(ctx context.Context, configs []task.HandlerConfig) (map[string]task.HandlerConfig, error) {
	merged, err := r.HandlerConfigs(ctx)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if _, exists := merged[cfg.HandlerID()]; !exists {
			merged[cfg.HandlerID()] = cfg
		}
	}
	return merged, nil
}
