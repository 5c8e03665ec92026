package vectorizer

import "errors"

// Provider-independent failure modes, matchable with errors.Is.
var (
	ErrInvalidAPIKey          = errors.New("invalid or missing API key")
	ErrModelNotSupported      = errors.New("model not supported")
	ErrInvalidDimensions      = errors.New("invalid dimensions for model")
	ErrBatchTooLarge          = errors.New("batch size exceeds limit")
	ErrNoEmbeddingReturned    = errors.New("no embedding returned")
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
