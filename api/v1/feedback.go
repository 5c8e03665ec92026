package v1

import (
	"errors"
	"time"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/middleware"
)

// TaskFeedbackRequest is the POST /feedback/{task_id} body.
type TaskFeedbackRequest struct {
	Feedback task.Feedback `json:"feedback"`
}

// FeedbackRequest is the POST /feedback body: free-form product feedback
// with an optional way to reach the author.
type FeedbackRequest struct {
	Text    string `json:"text"`
	Contact string `json:"contact"`
}

// FeedbackResponse acknowledges an accepted submission.
type FeedbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TaskFeedback records the caller's rating on one of their own tasks.
// Only the feedback field changes; the rewritten record keeps the live
// retention window. Rating someone else's task is forbidden.
func TaskFeedback[C handler.Context](mgr *queue.Manager) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		userID, ok := middleware.GetUserID(ctx)
		if !ok {
			return response.Error(response.ErrUnauthorized)
		}

		var req TaskFeedbackRequest
		if err := bindJSON(ctx.Request(), &req); err != nil {
			return response.Error(response.ErrBadRequest.WithError(err))
		}
		if !req.Feedback.Valid() {
			return response.Error(response.ErrBadRequest.WithMessage("feedback must be like, dislike or neutral"))
		}

		t, err := mgr.Task(ctx, ctx.Param("task_id"))
		if errors.Is(err, queue.ErrTaskNotFound) {
			return response.Error(response.ErrNotFound)
		}
		if err != nil {
			return response.Error(err)
		}
		if t.UserID != userID {
			return response.Error(response.ErrForbidden)
		}

		t.Feedback = req.Feedback
		if err := mgr.SaveTask(ctx, t, queue.LiveTTL); err != nil {
			return response.Error(err)
		}
		return response.JSON(FeedbackResponse{Status: "success"})
	}
}

// Feedback appends a product feedback submission to the sink. The
// endpoint is open: guests leave feedback before they ever enqueue.
func Feedback[C handler.Context](sink *FeedbackFile) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		var req FeedbackRequest
		if err := bindJSON(ctx.Request(), &req); err != nil {
			return response.Error(response.ErrBadRequest.WithError(err))
		}

		entry := FeedbackEntry{
			Text:      req.Text,
			Contact:   req.Contact,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := sink.Append(entry); err != nil {
			return response.Error(response.ErrInternalServerError.WithMessage("failed to save feedback").WithError(err))
		}

		return response.JSON(FeedbackResponse{Status: "success", Message: "Feedback received"})
	}
}
