// Package reconciler tracks which task handlers the worker fleet currently
// serves and keeps the queues consistent when that set changes.
//
// A single background loop aggregates live worker registrations on every
// cycle and diffs the handler set against the previous snapshot. Handlers
// that disappeared have their ready backlog parked in the pending queues
// and their orphaned processing entries recovered; handlers that appeared
// get their pending backlog released back to the ready queues. The
// resulting availability map is published both in-process, through an
// atomic snapshot that request handlers read without locking, and in the
// store under the available_handlers key for external observers.
//
// All migration steps are idempotent, so overlapping cycles from multiple
// API instances converge to the same state.
//
// Usage:
//
//	rec := reconciler.New(st, queueManager, reg,
//		reconciler.WithLogger(log),
//	)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(rec.Run(ctx))
//
//	if rec.Available("echo:1") {
//		// route the task to the ready queue
//	}
package reconciler
