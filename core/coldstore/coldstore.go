package coldstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

const (
	defaultInterval = time.Minute
	scanBatchSize   = 100
)

// Stats reports replicator activity counters, cumulative across cycles.
type Stats struct {
	Cycles    int64
	New       int64
	Updated   int64
	Skipped   int64
	Errors    int64
	IsRunning bool
}

// Replicator mirrors task records into an analytics warehouse. The store
// keeps records only for their retention window; the warehouse keeps the
// full history.
type Replicator struct {
	store     store.Store
	warehouse Warehouse
	log       *slog.Logger
	interval  time.Duration

	cycles  atomic.Int64
	created atomic.Int64
	updated atomic.Int64
	skipped atomic.Int64
	errs    atomic.Int64
	running atomic.Bool
}

// Option configures a Replicator.
type Option func(*Replicator)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Replicator) {
		if log != nil {
			r.log = log
		}
	}
}

// WithInterval overrides the sync interval. Mainly for tests.
func WithInterval(interval time.Duration) Option {
	return func(r *Replicator) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// New creates a replicator syncing st into w once per minute.
func New(st store.Store, w Warehouse, opts ...Option) *Replicator {
	r := &Replicator{
		store:     st,
		warehouse: w,
		log:       slog.Default(),
		interval:  defaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns activity counters.
func (r *Replicator) Stats() Stats {
	return Stats{
		Cycles:    r.cycles.Load(),
		New:       r.created.Load(),
		Updated:   r.updated.Load(),
		Skipped:   r.skipped.Load(),
		Errors:    r.errs.Load(),
		IsRunning: r.running.Load(),
	}
}

// Healthcheck reports whether the replication loop is running.
func (r *Replicator) Healthcheck(_ context.Context) error {
	if !r.running.Load() {
		return ErrNotRunning
	}
	return nil
}

type outcome int

const (
	outcomeMissing outcome = iota // record vanished between scan and read
	outcomeNew
	outcomeUpdated
	outcomeSettled
)

// Replicate runs one sync cycle over every stored task record. Bad records
// are counted and skipped; only a failing key scan aborts the cycle.
func (r *Replicator) Replicate(ctx context.Context) error {
	var created, updated, skipped, failed int

	var cursor uint64
	for {
		keys, next, err := r.store.Scan(ctx, cursor, queue.TaskKey("*"), scanBatchSize)
		if err != nil {
			return fmt.Errorf("coldstore: %w", err)
		}
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := r.replicateOne(ctx, key)
			if err != nil {
				failed++
				r.log.WarnContext(ctx, "task record not replicated",
					logger.Component("coldstore"),
					slog.String("key", key),
					logger.Error(err),
				)
				continue
			}
			switch out {
			case outcomeNew:
				created++
			case outcomeUpdated:
				updated++
			case outcomeSettled:
				skipped++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	r.cycles.Add(1)
	r.created.Add(int64(created))
	r.updated.Add(int64(updated))
	r.skipped.Add(int64(skipped))
	r.errs.Add(int64(failed))

	r.log.InfoContext(ctx, "warehouse sync finished",
		logger.Component("coldstore"),
		logger.Count("new", created),
		logger.Count("updated", updated),
		logger.Count("skipped", skipped),
		logger.Count("errors", failed),
	)
	return nil
}

func (r *Replicator) replicateOne(ctx context.Context, key string) (outcome, error) {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return outcomeMissing, nil
	}
	if err != nil {
		return 0, err
	}

	t, err := task.Decode([]byte(raw))
	if err != nil {
		return 0, err
	}

	settled, err := r.warehouse.Settled(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	if settled {
		return outcomeSettled, nil
	}

	existed, err := r.warehouse.Replace(ctx, rowFromTask(t))
	if err != nil {
		return 0, err
	}
	if existed {
		return outcomeUpdated, nil
	}
	return outcomeNew, nil
}

// Run returns an errgroup-compatible loop: ensure the warehouse table, sync
// immediately, then once per interval. Cycle errors are logged and the loop
// continues; a failed table setup aborts.
func (r *Replicator) Run(ctx context.Context) func() error {
	return func() error {
		r.running.Store(true)
		defer r.running.Store(false)

		if err := r.warehouse.Ensure(ctx); err != nil {
			return fmt.Errorf("coldstore: ensure warehouse: %w", err)
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			if err := r.Replicate(ctx); err != nil && ctx.Err() == nil {
				r.log.ErrorContext(ctx, "warehouse sync failed",
					logger.Component("coldstore"),
					logger.Error(err),
				)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}
