package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/core/task"
)

// Record TTLs. Live records are refreshed on every position update, so an
// abandoned task disappears within an hour; terminal records stay visible
// for a day.
const (
	LiveTTL     = time.Hour
	TerminalTTL = 24 * time.Hour
)

const (
	defaultBlockTimeout = time.Second
	scanBatchSize       = 100
)

// Manager owns every task and queue mutation. All multi-key writes are
// issued as a single pipeline so a crashed caller leaves at most one
// partially-applied primitive; the record write rides in the same pipeline
// as the list moves.
type Manager struct {
	store        store.Store
	log          *slog.Logger
	blockTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for scan warnings and migrations.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithBlockTimeout tunes how long Claim and the migration drain wait on an
// empty list before giving up. Mainly for tests; production keeps the
// one-second default.
func WithBlockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.blockTimeout = d
		}
	}
}

// New creates a queue manager on the given store.
func New(st store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:        st,
		log:          slog.Default(),
		blockTimeout: defaultBlockTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Task loads and decodes a stored record.
func (m *Manager) Task(ctx context.Context, id string) (task.Task, error) {
	record, err := m.store.Get(ctx, TaskKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return task.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("load task %s: %w", id, err)
	}
	return task.Decode([]byte(record))
}

// SaveTask persists the record with the given TTL.
func (m *Manager) SaveTask(ctx context.Context, t task.Task, ttl time.Duration) error {
	record, err := task.Encode(t)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, TaskKey(t.ID), string(record), ttl); err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// ReadyLen returns the length of the global ready queue. Enqueue uses it
// to estimate start_position; the probe and the push are not atomic, so
// the estimate is advisory only.
func (m *Manager) ReadyLen(ctx context.Context) (int64, error) {
	return m.store.LLen(ctx, readyQueueKey)
}

// EnqueueReady places a task on the global ready queue and its handler
// shard, persisting the record in the same pipeline.
func (m *Manager) EnqueueReady(ctx context.Context, t task.Task) error {
	record, err := task.Encode(t)
	if err != nil {
		return err
	}
	return m.store.Pipeline(ctx, func(p store.Pipe) error {
		p.Set(TaskKey(t.ID), string(record), LiveTTL)
		p.LPush(readyQueueKey, t.ID)
		p.LPush(readyShardKey(t.HandlerID), t.ID)
		return nil
	})
}

// EnqueuePending parks a task whose handler no one currently advertises.
func (m *Manager) EnqueuePending(ctx context.Context, t task.Task) error {
	record, err := task.Encode(t)
	if err != nil {
		return err
	}
	return m.store.Pipeline(ctx, func(p store.Pipe) error {
		p.Set(TaskKey(t.ID), string(record), LiveTTL)
		p.LPush(pendingQueueKey, t.ID)
		p.LPush(pendingShardKey(t.HandlerID), t.ID)
		return nil
	})
}

// Claim blocks up to one second for a task on any of the given handler
// shards, then moves the claimed id from the global ready queue into the
// processing queue. Returns ErrNoTask when nothing arrived in time.
func (m *Manager) Claim(ctx context.Context, handlerIDs []string) (string, error) {
	if len(handlerIDs) == 0 {
		return "", ErrNoTask
	}
	keys := make([]string, len(handlerIDs))
	for i, h := range handlerIDs {
		keys[i] = readyShardKey(h)
	}

	_, id, err := m.store.BRPop(ctx, m.blockTimeout, keys...)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoTask
	}
	if err != nil {
		return "", fmt.Errorf("claim: %w", err)
	}

	err = m.store.Pipeline(ctx, func(p store.Pipe) error {
		p.LRem(readyQueueKey, 0, id)
		p.LPush(processingQueueKey, id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("claim %s: %w", id, err)
	}
	return id, nil
}

// Complete resolves a claimed task: terminal record TTL, removed from the
// processing queue.
func (m *Manager) Complete(ctx context.Context, t task.Task) error {
	record, err := task.Encode(t)
	if err != nil {
		return err
	}
	return m.store.Pipeline(ctx, func(p store.Pipe) error {
		p.Set(TaskKey(t.ID), string(record), TerminalTTL)
		p.LRem(processingQueueKey, 1, t.ID)
		return nil
	})
}

// FailTerminal moves a task that exhausted its retries into dead_letters.
func (m *Manager) FailTerminal(ctx context.Context, t task.Task) error {
	record, err := task.Encode(t)
	if err != nil {
		return err
	}
	return m.store.Pipeline(ctx, func(p store.Pipe) error {
		p.LRem(processingQueueKey, 1, t.ID)
		p.RPush(deadLettersKey, t.ID)
		p.Set(TaskKey(t.ID), string(record), TerminalTTL)
		return nil
	})
}

// Retry puts a failed task back for another attempt: head of the global
// ready queue, tail of its handler shard.
func (m *Manager) Retry(ctx context.Context, t task.Task) error {
	record, err := task.Encode(t)
	if err != nil {
		return err
	}
	return m.store.Pipeline(ctx, func(p store.Pipe) error {
		p.LRem(processingQueueKey, 1, t.ID)
		p.RPush(readyQueueKey, t.ID)
		p.LPush(readyShardKey(t.HandlerID), t.ID)
		p.Set(TaskKey(t.ID), string(record), TerminalTTL)
		return nil
	})
}

// UpdatePosition recomputes the task's 1-based position in the global
// ready queue (head is on the right), writes it onto the record, and
// refreshes the live TTL. Absent from ready: -1 while parked in pending,
// 0 otherwise.
func (m *Manager) UpdatePosition(ctx context.Context, id string) (task.Task, error) {
	t, err := m.Task(ctx, id)
	if err != nil {
		return task.Task{}, err
	}

	ids, err := m.store.LRange(ctx, readyQueueKey, 0, -1)
	if err != nil {
		return task.Task{}, fmt.Errorf("update position %s: %w", id, err)
	}

	position := 0
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			position = len(ids) - i
			break
		}
	}
	if position == 0 {
		pending, err := m.store.LRange(ctx, pendingQueueKey, 0, -1)
		if err != nil {
			return task.Task{}, fmt.Errorf("update position %s: %w", id, err)
		}
		for _, pid := range pending {
			if pid == id {
				position = -1
				break
			}
		}
	}

	t.CurrentPosition = position
	if err := m.SaveTask(ctx, t, LiveTTL); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// Tasks scans every stored record in batches, skipping entries that
// vanished mid-scan or fail to decode.
func (m *Manager) Tasks(ctx context.Context) ([]task.Task, error) {
	var out []task.Task
	var cursor uint64
	for {
		keys, next, err := m.store.Scan(ctx, cursor, taskKeyPrefix+"*", scanBatchSize)
		if err != nil {
			return nil, fmt.Errorf("scan tasks: %w", err)
		}
		for _, key := range keys {
			record, err := m.store.Get(ctx, key)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("scan tasks: %w", err)
			}
			t, err := task.Decode([]byte(record))
			if err != nil {
				m.log.WarnContext(ctx, "skipping unreadable task record",
					logger.Component("queue"),
					slog.String("key", key),
					logger.Error(err),
				)
				continue
			}
			out = append(out, t)
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// DeadLetterCount returns the dead letter backlog size.
func (m *Manager) DeadLetterCount(ctx context.Context) (int64, error) {
	return m.store.LLen(ctx, deadLettersKey)
}

// PurgeDeadLetters deletes every dead-lettered record and the list itself
// in one pipeline, returning how many records were dropped.
func (m *Manager) PurgeDeadLetters(ctx context.Context) (int, error) {
	ids, err := m.store.LRange(ctx, deadLettersKey, 0, -1)
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err = m.store.Pipeline(ctx, func(p store.Pipe) error {
		for _, id := range ids {
			p.Del(TaskKey(id))
		}
		p.Del(deadLettersKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}
	return len(ids), nil
}

// Healthcheck verifies the backing store is reachable.
func (m *Manager) Healthcheck(ctx context.Context) error {
	return m.store.Healthcheck(ctx)
}
