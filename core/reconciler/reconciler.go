package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/registry"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

const (
	availableHandlersKey = "available_handlers"

	defaultInterval = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Snapshot is the availability view published after each cycle. Readers
// receive it through an atomic pointer swap and must treat the maps as
// immutable.
type Snapshot struct {
	// Handlers maps handler id to the number of live workers serving it.
	Handlers map[string]int
	// Configs is the fleet-wide handler config map, refreshed whenever
	// the handler set changes.
	Configs map[string]task.HandlerConfig
}

// Stats reports reconciler activity counters.
type Stats struct {
	Cycles       int64
	HandlersLive int
	IsRunning    bool
}

// Reconciler keeps the published handler availability in step with the
// worker fleet. One instance runs per API process; concurrent reconcilers
// across processes are safe because every migration primitive converges.
type Reconciler struct {
	store    store.Store
	queue    *queue.Manager
	registry *registry.Registry
	log      *slog.Logger
	interval time.Duration

	snapshot atomic.Pointer[Snapshot]
	cycles   atomic.Int64
	running  atomic.Bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger for cycle reporting.
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithInterval overrides the cycle interval. Mainly for tests.
func WithInterval(interval time.Duration) Option {
	return func(r *Reconciler) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// New creates a reconciler. The snapshot starts empty, so every handler
// advertised by the first cycle counts as added.
func New(st store.Store, mgr *queue.Manager, reg *registry.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    st,
		queue:    mgr,
		registry: reg,
		log:      slog.Default(),
		interval: defaultInterval,
	}
	r.snapshot.Store(&Snapshot{
		Handlers: map[string]int{},
		Configs:  map[string]task.HandlerConfig{},
	})
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns the current availability view. Never nil.
func (r *Reconciler) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Available reports whether any live worker advertises the handler.
func (r *Reconciler) Available(handlerID string) bool {
	_, ok := r.snapshot.Load().Handlers[handlerID]
	return ok
}

// Stats returns activity counters.
func (r *Reconciler) Stats() Stats {
	return Stats{
		Cycles:       r.cycles.Load(),
		HandlersLive: len(r.snapshot.Load().Handlers),
		IsRunning:    r.running.Load(),
	}
}

// Healthcheck reports whether the reconcile loop is running.
func (r *Reconciler) Healthcheck(_ context.Context) error {
	if !r.running.Load() {
		return ErrNotRunning
	}
	return nil
}

// Reconcile runs a single cycle: aggregate the live fleet, migrate queues
// for handlers that appeared or disappeared, refresh configs on change,
// and publish the new snapshot in-process and under available_handlers.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	live, err := r.registry.LiveHandlers(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	prev := r.snapshot.Load()
	added, removed := diffKeys(live, prev.Handlers)

	configs := prev.Configs
	if len(added)+len(removed) > 0 {
		r.log.InfoContext(ctx, "handler availability changed",
			logger.Component("reconciler"),
			logger.Count("added", len(added)),
			logger.Count("removed", len(removed)),
		)
		if err := r.migrate(ctx, added, removed); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		configs, err = r.registry.HandlerConfigs(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
	}

	snap := &Snapshot{Handlers: live, Configs: configs}
	r.snapshot.Store(snap)
	r.cycles.Add(1)

	payload, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("reconcile: encode snapshot: %w", err)
	}
	if err := r.store.Set(ctx, availableHandlersKey, string(payload), 0); err != nil {
		return fmt.Errorf("reconcile: publish snapshot: %w", err)
	}
	return nil
}

// migrate applies the queue migration protocol: drain the ready shards of
// removed handlers, park their orphaned processing entries, then release
// the pending backlog of handlers that came online. Every step is
// idempotent, so an interrupted run finishes on the next cycle.
func (r *Reconciler) migrate(ctx context.Context, added, removed map[string]struct{}) error {
	for h := range removed {
		if err := r.queue.MigrateToPending(ctx, h); err != nil {
			return err
		}
	}
	if err := r.queue.MigrateProcessing(ctx, removed); err != nil {
		return err
	}
	for h := range added {
		if err := r.queue.MigrateFromPending(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// Run returns an errgroup-compatible loop: one cycle immediately, then
// one per interval. Cycle errors are logged and the loop continues; the
// store being down for a while must not kill availability tracking. On
// shutdown the published key is deleted and the in-process snapshot
// zeroed so enqueues stop routing to ready queues no one drains.
func (r *Reconciler) Run(ctx context.Context) func() error {
	return func() error {
		r.running.Store(true)
		defer r.running.Store(false)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			if err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
				r.log.ErrorContext(ctx, "reconcile cycle failed",
					logger.Component("reconciler"),
					logger.Error(err),
				)
			}

			select {
			case <-ctx.Done():
				r.shutdown()
				return nil
			case <-ticker.C:
			}
		}
	}
}

func (r *Reconciler) shutdown() {
	r.snapshot.Store(&Snapshot{
		Handlers: map[string]int{},
		Configs:  map[string]task.HandlerConfig{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.store.Del(ctx, availableHandlersKey); err != nil {
		r.log.Warn("failed to drop published handlers on shutdown",
			logger.Component("reconciler"),
			logger.Error(err),
		)
	}
}

func diffKeys(current map[string]int, previous map[string]int) (added, removed map[string]struct{}) {
	added = make(map[string]struct{})
	removed = make(map[string]struct{})
	for h := range current {
		if _, ok := previous[h]; !ok {
			added[h] = struct{}{}
		}
	}
	for h := range previous {
		if _, ok := current[h]; !ok {
			removed[h] = struct{}{}
		}
	}
	return added, removed
}
