package queue

import "errors"

// Package-level error definitions for queue operations.
var (
	ErrTaskNotFound = errors.New("task record not found")
	ErrNoTask       = errors.New("no task available")
)
