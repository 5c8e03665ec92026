package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/queue"
)

const (
	defaultInterval  = time.Hour
	defaultThreshold = 50
)

// Stats reports janitor activity counters.
type Stats struct {
	Sweeps    int64
	Purged    int64
	IsRunning bool
}

// Janitor bounds the dead letters backlog. Failed task records stay
// inspectable until the backlog grows past the threshold, then the whole
// list and its records are dropped in one sweep.
type Janitor struct {
	queue     *queue.Manager
	log       *slog.Logger
	interval  time.Duration
	threshold int64

	sweeps  atomic.Int64
	purged  atomic.Int64
	running atomic.Bool
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(j *Janitor) {
		if log != nil {
			j.log = log
		}
	}
}

// WithInterval overrides the sweep interval. Mainly for tests.
func WithInterval(interval time.Duration) Option {
	return func(j *Janitor) {
		if interval > 0 {
			j.interval = interval
		}
	}
}

// WithThreshold sets the backlog size above which a sweep purges. Zero
// purges on any non-empty backlog.
func WithThreshold(n int) Option {
	return func(j *Janitor) {
		if n >= 0 {
			j.threshold = int64(n)
		}
	}
}

// New creates a janitor with an hourly interval and a threshold of 50.
func New(mgr *queue.Manager, opts ...Option) *Janitor {
	j := &Janitor{
		queue:     mgr,
		log:       slog.Default(),
		interval:  defaultInterval,
		threshold: defaultThreshold,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Stats returns activity counters.
func (j *Janitor) Stats() Stats {
	return Stats{
		Sweeps:    j.sweeps.Load(),
		Purged:    j.purged.Load(),
		IsRunning: j.running.Load(),
	}
}

// Sweep runs one pass: purge the dead letters and their task records when
// the backlog exceeds the threshold. Returns the number of purged entries.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	j.sweeps.Add(1)

	backlog, err := j.queue.DeadLetterCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("janitor: %w", err)
	}
	if backlog <= j.threshold {
		return 0, nil
	}

	purged, err := j.queue.PurgeDeadLetters(ctx)
	if err != nil {
		return 0, fmt.Errorf("janitor: %w", err)
	}
	j.purged.Add(int64(purged))

	j.log.InfoContext(ctx, "dead letters purged",
		logger.Component("janitor"),
		logger.Count("purged", purged),
	)
	return purged, nil
}

// Run returns an errgroup-compatible loop sweeping once per interval. The
// first sweep happens a full interval after start, not at startup. Sweep
// errors are logged and the loop continues.
func (j *Janitor) Run(ctx context.Context) func() error {
	return func() error {
		j.running.Store(true)
		defer j.running.Store(false)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
					j.log.ErrorContext(ctx, "sweep failed",
						logger.Component("janitor"),
						logger.Error(err),
					)
				}
			}
		}
	}
}
