package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle state of a task through the queue system.
type Status string

const (
	StatusPending   Status = "pending" // no worker advertises the handler
	StatusQueued    Status = "queued"  // waiting in the ready queue
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid checks if the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the task will receive no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Feedback is the user's rating of a finished task.
type Feedback string

const (
	FeedbackLike    Feedback = "like"
	FeedbackDislike Feedback = "dislike"
	FeedbackNeutral Feedback = "neutral"
)

// Valid checks if the feedback is one of the known values.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackLike, FeedbackDislike, FeedbackNeutral:
		return true
	}
	return false
}

// Answer carries a handler's output: the response text plus any
// supporting documents keyed by source.
type Answer struct {
	Text         string            `json:"text"`
	RelevantDocs map[string]string `json:"relevant_docs,omitempty"`
}

// Task is the unit of work flowing through the queues. The record is
// stored as JSON under task:{id}; queue lists hold only the id.
type Task struct {
	ID        string `json:"task_id"`
	Prompt    string `json:"prompt"`
	Status    Status `json:"status"`
	HandlerID string `json:"handler_id"`
	UserID    string `json:"user_id"`
	ShortID   string `json:"short_task_id"`

	// Timestamps are RFC 3339 strings in UTC; empty means unset.
	QueuedAt   string `json:"queued_at"`
	FinishedAt string `json:"finished_at"`

	// Conversation chaining; opaque to the queue machinery.
	IsFirst  bool   `json:"is_first"`
	FirstID  string `json:"first_id"`
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Context  string `json:"context"`

	Retries int    `json:"retries"`
	Result  Answer `json:"result"`
	Error   Answer `json:"error"`

	// StartPosition is the queue length observed at enqueue plus one,
	// or -1 when the task went straight to the pending queue.
	// CurrentPosition is the 1-based position at last observation,
	// 0 when absent from the ready queue, -1 while pending.
	// Both are advisory: enqueue does not hold a lock between the
	// length probe and the push.
	StartPosition   int `json:"start_position"`
	CurrentPosition int `json:"current_position"`

	Feedback Feedback `json:"feedback"`

	// WorkerProcessingTime is the wall-clock seconds spent inside the
	// handler call.
	WorkerProcessingTime float64 `json:"worker_processing_time"`
}

// Option configures a task at creation time.
type Option func(*Task)

// WithFirst marks whether the task starts a new conversation chain.
func WithFirst(isFirst bool) Option {
	return func(t *Task) {
		t.IsFirst = isFirst
	}
}

// WithContext attaches free-form context carried opaquely on the record.
func WithContext(context string) Option {
	return func(t *Task) {
		t.Context = context
	}
}

// WithChain links the task into an existing conversation chain.
func WithChain(firstID, parentID string) Option {
	return func(t *Task) {
		t.FirstID = firstID
		t.ParentID = parentID
	}
}

// New creates a task ready for enqueueing: a fresh id, the derived short
// id, a whitespace-trimmed prompt, and queued_at stamped in UTC. Placement
// fields are filled in by the enqueue path once it has observed the queue.
func New(userID, handlerID, prompt string, opts ...Option) Task {
	t := Task{
		ID:        uuid.NewString(),
		Prompt:    strings.TrimSpace(prompt),
		Status:    StatusPending,
		HandlerID: handlerID,
		UserID:    userID,
		QueuedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		IsFirst:   true,
		Feedback:  FeedbackNeutral,
	}
	t.ShortID = ShortID(t.ID, userID)
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// TaskType returns the handler family, the part of the handler id before
// the first colon. Malformed ids degrade to the whole id.
func (t Task) TaskType() string {
	typ, _, _ := strings.Cut(t.HandlerID, ":")
	return typ
}

// TaskTypeVersion returns the handler version, the part of the handler id
// after the first colon, or empty when the id carries no version.
func (t Task) TaskTypeVersion() string {
	_, version, _ := strings.Cut(t.HandlerID, ":")
	return version
}

// Validate checks the structural invariants of a stored record.
func (t Task) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !t.Feedback.Valid() {
		return ErrInvalidFeedback
	}
	return nil
}
