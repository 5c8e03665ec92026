package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

// Migration primitives. Each is idempotent and safe to interrupt: a task
// first appears in its destination, then leaves the source, so a crash
// between the two never loses the id. Re-running converges to the same
// state, which also makes concurrent reconcilers across API instances
// safe.

// MigrateToPending drains the ready shard of a handler no worker
// advertises anymore, parking every task in the pending queues.
func (m *Manager) MigrateToPending(ctx context.Context, handlerID string) error {
	ready := readyShardKey(handlerID)
	pending := pendingShardKey(handlerID)

	for {
		id, err := m.store.BRPopLPush(ctx, ready, pending, m.blockTimeout)
		if errors.Is(err, store.ErrNotFound) {
			return nil // shard drained
		}
		if err != nil {
			return fmt.Errorf("migrate to pending %s: %w", handlerID, err)
		}

		t, err := m.Task(ctx, id)
		if err != nil {
			m.log.WarnContext(ctx, "skipping unreadable task during migration",
				logger.Component("queue"),
				logger.TaskID(id),
				logger.Error(err),
			)
			continue
		}
		t.Status = task.StatusPending
		t.CurrentPosition = -1
		record, err := task.Encode(t)
		if err != nil {
			return err
		}

		err = m.store.Pipeline(ctx, func(p store.Pipe) error {
			p.LRem(readyQueueKey, 0, id)
			p.LPush(pendingQueueKey, id)
			p.Set(TaskKey(id), string(record), LiveTTL)
			return nil
		})
		if err != nil {
			return fmt.Errorf("migrate to pending %s: %w", handlerID, err)
		}

		m.log.InfoContext(ctx, "task parked, handler gone",
			logger.Component("queue"),
			logger.TaskID(id),
			logger.HandlerID(handlerID),
		)
	}
}

// MigrateProcessing parks claimed-but-unresolved tasks whose handler
// disappeared, usually because their worker died mid-flight. Tasks still
// held by a live worker finish there; this only touches ids whose handler
// is in the removed set.
func (m *Manager) MigrateProcessing(ctx context.Context, removed map[string]struct{}) error {
	if len(removed) == 0 {
		return nil
	}
	ids, err := m.store.LRange(ctx, processingQueueKey, 0, -1)
	if err != nil {
		return fmt.Errorf("migrate processing: %w", err)
	}

	for _, id := range ids {
		t, err := m.Task(ctx, id)
		if err != nil {
			m.log.WarnContext(ctx, "skipping unreadable task during migration",
				logger.Component("queue"),
				logger.TaskID(id),
				logger.Error(err),
			)
			continue
		}
		if _, gone := removed[t.HandlerID]; !gone {
			continue
		}

		t.Status = task.StatusPending
		t.CurrentPosition = -1
		record, err := task.Encode(t)
		if err != nil {
			return err
		}

		err = m.store.Pipeline(ctx, func(p store.Pipe) error {
			p.LRem(processingQueueKey, 0, id)
			p.LPush(pendingQueueKey, id)
			p.LPush(pendingShardKey(t.HandlerID), id)
			p.Set(TaskKey(id), string(record), LiveTTL)
			return nil
		})
		if err != nil {
			return fmt.Errorf("migrate processing %s: %w", id, err)
		}

		m.log.InfoContext(ctx, "orphaned task parked",
			logger.Component("queue"),
			logger.TaskID(id),
			logger.HandlerID(t.HandlerID),
		)
	}
	return nil
}

// MigrateFromPending releases parked tasks of a handler that came back
// online into the ready queues. current_position is left stale; the next
// position update corrects it.
func (m *Manager) MigrateFromPending(ctx context.Context, handlerID string) error {
	ids, err := m.store.LRange(ctx, pendingQueueKey, 0, -1)
	if err != nil {
		return fmt.Errorf("migrate from pending %s: %w", handlerID, err)
	}

	released := 0
	for _, id := range ids {
		t, err := m.Task(ctx, id)
		if err != nil {
			m.log.WarnContext(ctx, "skipping unreadable task during migration",
				logger.Component("queue"),
				logger.TaskID(id),
				logger.Error(err),
			)
			continue
		}
		if t.HandlerID != handlerID {
			continue
		}

		t.Status = task.StatusQueued
		record, err := task.Encode(t)
		if err != nil {
			return err
		}

		err = m.store.Pipeline(ctx, func(p store.Pipe) error {
			p.LRem(pendingQueueKey, 0, id)
			p.LRem(pendingShardKey(handlerID), 0, id)
			p.LPush(readyQueueKey, id)
			p.LPush(readyShardKey(handlerID), id)
			p.Set(TaskKey(id), string(record), LiveTTL)
			return nil
		})
		if err != nil {
			return fmt.Errorf("migrate from pending %s: %w", id, err)
		}
		released++
	}

	if released > 0 {
		m.log.InfoContext(ctx, "pending tasks released",
			logger.Component("queue"),
			logger.HandlerID(handlerID),
			logger.Count("released", released),
		)
	}
	return nil
}
