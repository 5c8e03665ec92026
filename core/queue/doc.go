// Package queue implements the queue choreography tasks move through:
// a global ready list plus per-handler shards, a pending area for tasks
// whose handler is offline, a processing list for claimed work, and a
// dead-letter list for exhausted retries.
//
// The Manager is the only writer of task records and queue lists. Every
// multi-key mutation is a single store pipeline with the record write
// folded in, which keeps the core invariant: between any two operations a
// task id is a member of at most one of the global ready, pending,
// processing, or dead-letter lists.
//
// Queue direction follows the "right is the head" convention: LPUSH
// enqueues, BRPOP claims, so within one handler shard tasks are FIFO.
// Retries are the one exception, re-entering at the head of the global
// list.
//
//	mgr := queue.New(st, queue.WithLogger(log))
//
//	t := task.New(userID, "echo:1", prompt)
//	t.Status = task.StatusQueued
//	if err := mgr.EnqueueReady(ctx, t); err != nil { ... }
//
//	id, err := mgr.Claim(ctx, []string{"echo:1"})
//
// Migration primitives (MigrateToPending, MigrateProcessing,
// MigrateFromPending) are idempotent: the reconciler may crash or run
// concurrently on another API instance and the store still converges.
package queue
