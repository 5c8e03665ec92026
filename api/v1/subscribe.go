package v1

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/task"
)

// subscribePollInterval is how often an open subscription refreshes the
// task record and its queue position.
const subscribePollInterval = time.Second

// Subscribe streams a task's lifecycle as Server-Sent Events. Each poll
// recomputes the queue position and emits the full task record whenever
// the status or position moved since the last frame. Terminal tasks get
// finished_at stamped (if still unset) and their record TTL extended to
// the terminal retention before the final frame closes the stream. A
// missing record ends the stream immediately without a frame.
func Subscribe[C handler.Context](mgr *queue.Manager, log *slog.Logger) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		id := ctx.Param("task_id")
		events := make(chan any)

		go func() {
			defer close(events)

			ticker := time.NewTicker(subscribePollInterval)
			defer ticker.Stop()

			var lastStatus task.Status
			var lastPosition int
			emitted := false

			for {
				t, err := mgr.UpdatePosition(ctx, id)
				if err != nil {
					if !errors.Is(err, queue.ErrTaskNotFound) && ctx.Err() == nil {
						log.WarnContext(ctx, "subscription poll failed",
							logger.Component("api"),
							logger.TaskID(id),
							logger.Error(err),
						)
					}
					return
				}

				if t.Status.Terminal() {
					if t.FinishedAt == "" {
						t.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
					}
					if err := mgr.SaveTask(ctx, t, queue.TerminalTTL); err != nil && ctx.Err() == nil {
						log.WarnContext(ctx, "failed to retain finished task",
							logger.Component("api"),
							logger.TaskID(id),
							logger.Error(err),
						)
					}
					sendTask(ctx, events, t)
					return
				}

				if !emitted || t.Status != lastStatus || t.CurrentPosition != lastPosition {
					if !sendTask(ctx, events, t) {
						return
					}
					lastStatus = t.Status
					lastPosition = t.CurrentPosition
					emitted = true
				}

				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()

		return response.SSE(events,
			response.WithEventName("task"),
			response.WithSSEErrorHandler(func(c context.Context, err error) {
				log.WarnContext(c, "subscription stream write failed",
					logger.Component("api"),
					logger.TaskID(id),
					logger.Error(err),
				)
			}),
		)
	}
}

// sendTask pushes one encoded task frame, giving up when the client is
// gone. Reports whether the frame was handed off.
func sendTask(ctx context.Context, events chan<- any, t task.Task) bool {
	record, err := task.Encode(t)
	if err != nil {
		return false
	}
	select {
	case events <- record:
		return true
	case <-ctx.Done():
		return false
	}
}
