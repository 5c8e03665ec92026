package dispatch

import (
	"context"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/task"
)

const (
	// verifyPrompt is the probe sent to every handler before the worker
	// advertises it.
	verifyPrompt = "Привет"

	verifyAttempts       = 3
	defaultVerifyBackoff = 3 * time.Second
)

// WithVerifyBackoff sets the pause between verification attempts. Mainly
// for tests.
func WithVerifyBackoff(backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if backoff > 0 {
			d.verifyBackoff = backoff
		}
	}
}

// Verify resolves each configured handler and smoke-tests it with a probe
// task before the worker advertises it. A handler with no implementation
// in the binary is dropped immediately; one that errors on the probe gets
// three attempts with a backoff between them, then is dropped. Returns the
// configs of the verified handlers in configuration order, ready for
// registration. Zero verified handlers is fatal for a worker.
func (d *Dispatcher) Verify(ctx context.Context, configs []task.HandlerConfig) ([]task.HandlerConfig, error) {
	verified := make([]task.HandlerConfig, 0, len(configs))
	for _, cfg := range configs {
		id := cfg.HandlerID()
		if _, dup := d.handlers[id]; dup {
			d.log.WarnContext(ctx, "duplicate handler config, dropped",
				logger.Component("dispatch"),
				logger.HandlerID(id),
			)
			continue
		}

		h, ok := d.resolve(cfg)
		if !ok {
			d.log.WarnContext(ctx, "handler implementation missing, dropped",
				logger.Component("dispatch"),
				logger.HandlerID(id),
			)
			continue
		}

		if err := d.probe(ctx, h, id); err != nil {
			d.log.WarnContext(ctx, "handler failed verification, dropped",
				logger.Component("dispatch"),
				logger.HandlerID(id),
				logger.Error(err),
			)
			continue
		}

		d.handlers[id] = h
		d.order = append(d.order, id)
		verified = append(verified, cfg)
		d.log.InfoContext(ctx, "handler verified",
			logger.Component("dispatch"),
			logger.HandlerID(id),
		)
	}

	if len(verified) == 0 {
		return nil, ErrNoVerifiedHandlers
	}
	return verified, nil
}

func (d *Dispatcher) probe(ctx context.Context, h Handler, handlerID string) error {
	probe := task.New("", handlerID, verifyPrompt)

	var lastErr error
	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		if _, err := d.invoke(ctx, h, probe); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < verifyAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.verifyBackoff):
			}
		}
	}
	return lastErr
}
