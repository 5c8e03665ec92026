package v1

import (
	"sort"
	"time"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/middleware"
)

// Tasks lists every stored task belonging to the caller, oldest first.
// The response is a JSON array whose elements are the serialized task
// records themselves, the shape the web client consumes.
func Tasks[C handler.Context](mgr *queue.Manager) handler.HandlerFunc[C] {
	return listTasks[C](mgr, false)
}

// FirstTasks lists the caller's conversation-opening tasks, oldest first.
func FirstTasks[C handler.Context](mgr *queue.Manager) handler.HandlerFunc[C] {
	return listTasks[C](mgr, true)
}

func listTasks[C handler.Context](mgr *queue.Manager, firstOnly bool) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		userID, ok := middleware.GetUserID(ctx)
		if !ok {
			return response.Error(response.ErrUnauthorized)
		}

		all, err := mgr.Tasks(ctx)
		if err != nil {
			return response.Error(err)
		}

		var mine []task.Task
		for _, t := range all {
			if t.UserID != userID {
				continue
			}
			if firstOnly && !t.IsFirst {
				continue
			}
			mine = append(mine, t)
		}

		sort.Slice(mine, func(i, j int) bool {
			return queuedBefore(mine[i], mine[j])
		})

		records := make([]string, 0, len(mine))
		for _, t := range mine {
			record, err := task.Encode(t)
			if err != nil {
				continue
			}
			records = append(records, string(record))
		}
		return response.JSON(records)
	}
}

// queuedBefore orders tasks by enqueue time. Records with unparseable
// timestamps fall back to byte order, which matches chronological order
// for well-formed RFC 3339 stamps anyway.
func queuedBefore(a, b task.Task) bool {
	at, aerr := time.Parse(time.RFC3339Nano, a.QueuedAt)
	bt, berr := time.Parse(time.RFC3339Nano, b.QueuedAt)
	if aerr != nil || berr != nil {
		return a.QueuedAt < b.QueuedAt
	}
	return at.Before(bt)
}
