package v1

import (
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/middleware"
)

// reservedHandlerID is rejected at enqueue so prompts always target a
// concrete handler.
const reservedHandlerID = "default"

// EnqueueRequest is the POST /enqueue body.
type EnqueueRequest struct {
	Prompt    string `json:"prompt"`
	HandlerID string `json:"handler_id"`
	IsFirst   bool   `json:"is_first"`
}

// EnqueueResponse identifies the accepted task.
type EnqueueResponse struct {
	TaskID      string `json:"task_id"`
	ShortTaskID string `json:"short_task_id"`
}

// Enqueue accepts a prompt and places it on a queue. Prompts whose handler
// is currently advertised by a live worker go onto the ready queue with a
// 1-based start position; the rest are parked on the pending queue with
// start position -1 until the reconciler releases them. An empty or
// reserved handler id is rejected with 405 before any record is written.
//
// The start position is advisory: the length probe and the push are not
// one atomic step, so concurrent enqueues may observe the same length.
func Enqueue[C handler.Context](mgr *queue.Manager, fleet Fleet) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		userID, ok := middleware.GetUserID(ctx)
		if !ok {
			return response.Error(response.ErrUnauthorized)
		}

		var req EnqueueRequest
		if err := bindJSON(ctx.Request(), &req); err != nil {
			return response.Error(response.ErrBadRequest.WithError(err))
		}
		if req.HandlerID == "" || req.HandlerID == reservedHandlerID {
			return response.Error(response.ErrMethodNotAllowed.WithMessage("invalid handler_id"))
		}

		t := task.New(userID, req.HandlerID, req.Prompt, task.WithFirst(req.IsFirst))

		if fleet.Available(req.HandlerID) {
			length, err := mgr.ReadyLen(ctx)
			if err != nil {
				return response.Error(err)
			}
			t.StartPosition = int(length) + 1
			t.Status = task.StatusQueued
			if err := mgr.EnqueueReady(ctx, t); err != nil {
				return response.Error(err)
			}
		} else {
			t.StartPosition = -1
			t.Status = task.StatusPending
			if err := mgr.EnqueuePending(ctx, t); err != nil {
				return response.Error(err)
			}
		}

		return response.JSON(EnqueueResponse{TaskID: t.ID, ShortTaskID: t.ShortID})
	}
}
