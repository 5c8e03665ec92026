package vectorizer

import (
	"context"
	"fmt"
	"slices"
)

// Vectorizer turns text into embedding vectors. The search handler uses
// one to build the kNN query vector for a prompt; which provider backs
// it is a deployment decision.
type Vectorizer interface {
	// Embed converts one text into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into vectors, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the vector size this instance produces.
	Dimensions() int
}

// resolveDimensions checks a requested output size against a model's
// supported sizes. Zero picks the model default, the table head.
func resolveDimensions(table map[string][]int, model string, requested int) (int, error) {
	supported, ok := table[model]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrModelNotSupported, model)
	}
	if requested == 0 {
		return supported[0], nil
	}
	if !slices.Contains(supported, requested) {
		return 0, fmt.Errorf("%w: %s supports %v, got %d",
			ErrInvalidDimensions, model, supported, requested)
	}
	return requested, nil
}
