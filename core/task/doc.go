// Package task defines the unit of work flowing through the queue system:
// the Task record, its lifecycle states, the JSON codec used for storage,
// and the short display id derived from a task's identity.
//
// A task is created once by the enqueue path and then mutated by exactly
// one actor at a time: the worker that claimed it, the reconciler during a
// queue migration, or the feedback endpoint after the task is terminal.
// Records are stored as JSON strings; Decode validates structure so scan
// loops can skip corrupt entries instead of dying on them.
//
// # Lifecycle
//
//	pending ──► queued ──► running ──► completed
//	   ▲           ▲           │
//	   │           └── retry ──┤
//	   └── handler removed     └──► failed (retries exhausted)
//
// # Usage
//
//	t := task.New(userID, "echo:1", "  hello  ", task.WithFirst(true))
//	data, _ := task.Encode(t)
//	back, err := task.Decode(data)
package task
