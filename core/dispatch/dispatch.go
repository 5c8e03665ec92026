package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/task"
)

const (
	defaultMaxRetries   = 3
	defaultErrorBackoff = time.Second
)

// Handler executes tasks of a single handler id. The dispatcher invokes a
// handler synchronously and never concurrently with itself, so
// implementations only need to be safe for sequential reuse.
type Handler interface {
	Invoke(ctx context.Context, t task.Task) (task.Answer, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, t task.Task) (task.Answer, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, t task.Task) (task.Answer, error) {
	return f(ctx, t)
}

// Resolver maps a handler config to the implementation compiled into the
// binary. A false return means no such implementation exists.
type Resolver func(cfg task.HandlerConfig) (Handler, bool)

// Stats reports dispatcher activity counters.
type Stats struct {
	Processed int64
	Retried   int64
	Failed    int64
	Skipped   int64
	IsRunning bool
}

// Dispatcher is the worker loop: it claims tasks from the ready queues of
// its verified handlers, invokes the handler, and resolves each task to
// COMPLETED or through the retry policy to FAILED.
type Dispatcher struct {
	queue   *queue.Manager
	resolve Resolver
	log     *slog.Logger

	maxRetries    int
	errorBackoff  time.Duration
	verifyBackoff time.Duration

	handlers map[string]Handler
	order    []string

	processed atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	running   atomic.Bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithMaxRetries sets the attempt bound before a task moves to the dead
// letters. Defaults to 3.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxRetries = n
		}
	}
}

// WithErrorBackoff sets the pause after a failed loop iteration. Mainly
// for tests.
func WithErrorBackoff(backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if backoff > 0 {
			d.errorBackoff = backoff
		}
	}
}

// New creates a dispatcher. Verify must run before the loop starts so the
// dispatcher knows which queues to subscribe to.
func New(mgr *queue.Manager, resolve Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:         mgr,
		resolve:       resolve,
		log:           slog.Default(),
		maxRetries:    defaultMaxRetries,
		errorBackoff:  defaultErrorBackoff,
		verifyBackoff: defaultVerifyBackoff,
		handlers:      make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats returns activity counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Processed: d.processed.Load(),
		Retried:   d.retried.Load(),
		Failed:    d.failed.Load(),
		Skipped:   d.skipped.Load(),
		IsRunning: d.running.Load(),
	}
}

// Healthcheck reports whether the dispatch loop is running.
func (d *Dispatcher) Healthcheck(_ context.Context) error {
	if !d.running.Load() {
		return ErrNotRunning
	}
	return nil
}

// Run returns an errgroup-compatible loop. It claims one task at a time
// from the verified handler queues and resolves it before polling again.
// Transient store errors are logged and followed by a short pause; the
// loop only exits on context cancellation. The task a worker is executing
// when the context is cancelled still runs to completion.
func (d *Dispatcher) Run(ctx context.Context) func() error {
	return func() error {
		if len(d.handlers) == 0 {
			return ErrNoVerifiedHandlers
		}
		d.running.Store(true)
		defer d.running.Store(false)

		d.log.InfoContext(ctx, "dispatcher started",
			logger.Component("dispatch"),
			logger.Count("handlers", len(d.order)),
		)

		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			err := d.dispatchOne(ctx)
			switch {
			case err == nil, errors.Is(err, queue.ErrNoTask):
			case ctx.Err() != nil:
				return nil
			default:
				d.log.ErrorContext(ctx, "dispatch iteration failed",
					logger.Component("dispatch"),
					logger.Error(err),
				)
				d.pause(ctx, d.errorBackoff)
			}
		}
	}
}

// dispatchOne claims, executes, and resolves a single task. A timeout on
// the blocking pop surfaces as queue.ErrNoTask.
func (d *Dispatcher) dispatchOne(ctx context.Context) error {
	id, err := d.queue.Claim(ctx, d.order)
	if err != nil {
		return err
	}

	claimed, err := d.queue.Task(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) || errors.Is(err, task.ErrInvalidRecord) {
			d.skipped.Add(1)
			d.log.WarnContext(ctx, "claimed task has no usable record",
				logger.Component("dispatch"),
				logger.TaskID(id),
				logger.Error(err),
			)
			return nil
		}
		return err
	}

	claimed.Status = task.StatusRunning
	if err := d.queue.SaveTask(ctx, claimed, queue.LiveTTL); err != nil {
		return err
	}

	h, ok := d.handlers[claimed.HandlerID]
	if !ok {
		return d.fail(ctx, id, fmt.Errorf("%w: %s", ErrHandlerNotFound, claimed.HandlerID))
	}

	started := time.Now()
	answer, err := d.invoke(ctx, h, claimed)
	if err != nil {
		return d.fail(ctx, id, err)
	}

	claimed.Status = task.StatusCompleted
	claimed.Result = answer
	claimed.WorkerProcessingTime = time.Since(started).Seconds()
	if err := d.queue.Complete(ctx, claimed); err != nil {
		return err
	}
	d.processed.Add(1)

	d.log.InfoContext(ctx, "task completed",
		logger.Component("dispatch"),
		logger.TaskID(id),
		logger.HandlerID(claimed.HandlerID),
		logger.Duration(time.Since(started)),
	)
	return nil
}

// fail applies the retry policy to a claimed task: reload the stored
// record, bump retries, and either park it in the dead letters or put it
// back at the head of the global line. Requeued tasks go back to QUEUED so
// the record matches the queue it sits in.
func (d *Dispatcher) fail(ctx context.Context, id string, cause error) error {
	stored, err := d.queue.Task(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) || errors.Is(err, task.ErrInvalidRecord) {
			d.skipped.Add(1)
			d.log.WarnContext(ctx, "failed task has no usable record",
				logger.Component("dispatch"),
				logger.TaskID(id),
				logger.Error(err),
			)
			return nil
		}
		return err
	}

	stored.Retries++
	if stored.Retries >= d.maxRetries {
		stored.Status = task.StatusFailed
		stored.Error = task.Answer{Text: cause.Error()}
		if err := d.queue.FailTerminal(ctx, stored); err != nil {
			return err
		}
		d.failed.Add(1)
		d.log.ErrorContext(ctx, "task moved to dead letters",
			logger.Component("dispatch"),
			logger.TaskID(id),
			logger.HandlerID(stored.HandlerID),
			logger.RetryCount(stored.Retries),
			logger.Error(cause),
		)
		return nil
	}

	stored.Status = task.StatusQueued
	if err := d.queue.Retry(ctx, stored); err != nil {
		return err
	}
	d.retried.Add(1)
	d.log.WarnContext(ctx, "task requeued after failure",
		logger.Component("dispatch"),
		logger.TaskID(id),
		logger.HandlerID(stored.HandlerID),
		logger.RetryCount(stored.Retries),
		logger.Error(cause),
	)
	return nil
}

// invoke runs the handler, converting a panic into an error so one bad
// handler cannot take the worker down.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, t task.Task) (answer task.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Invoke(ctx, t)
}

func (d *Dispatcher) pause(ctx context.Context, backoff time.Duration) {
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
