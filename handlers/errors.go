package handlers

import "errors"

var (
	// ErrEmptyCompletion means the model returned no choices to read an
	// answer from.
	ErrEmptyCompletion = errors.New("model returned an empty completion")
	// ErrSearchFailed means the knowledge base query was rejected by the
	// search cluster.
	ErrSearchFailed = errors.New("knowledge base search failed")
)
