package task

import "errors"

// Package-level error definitions for task validation and decoding.
var (
	ErrInvalidRecord   = errors.New("invalid task record")
	ErrEmptyTaskID     = errors.New("task id is required")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidFeedback = errors.New("invalid feedback value")
)
