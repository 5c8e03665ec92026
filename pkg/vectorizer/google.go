package vectorizer

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini embedding models.
const (
	GoogleTextEmbedding005             = "text-embedding-005"
	GoogleTextMultilingualEmbedding002 = "text-multilingual-embedding-002"
)

// geminiBatchLimit is the most contents one EmbedContent call accepts.
const geminiBatchLimit = 100

// googleDimensions maps each supported model to its output sizes, the
// default first.
var googleDimensions = map[string][]int{
	GoogleTextEmbedding005:             {768, 256, 1536, 3072},
	GoogleTextMultilingualEmbedding002: {768, 256, 1536, 3072},
}

// googleSettings collects option values before the client exists.
type googleSettings struct {
	model    string
	dims     int
	maxBatch int
}

// GoogleOption configures NewGoogle.
type GoogleOption func(*googleSettings)

// WithGoogleModel selects the embedding model.
func WithGoogleModel(model string) GoogleOption {
	return func(s *googleSettings) { s.model = model }
}

// WithGoogleDimensions requests an output vector size. Zero keeps the
// model default.
func WithGoogleDimensions(dims int) GoogleOption {
	return func(s *googleSettings) { s.dims = dims }
}

// WithGoogleMaxBatchSize lowers the EmbedBatch input cap below the API
// limit of 100 contents per call.
func WithGoogleMaxBatchSize(n int) GoogleOption {
	return func(s *googleSettings) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// Google embeds text through the Gemini API.
type Google struct {
	client   *genai.Client
	name     string // full model resource name, "models/..."
	dims     int
	maxBatch int
}

// NewGoogle builds a Gemini vectorizer. The default is
// text-multilingual-embedding-002 at 768 dimensions.
func NewGoogle(ctx context.Context, apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	s := googleSettings{
		model:    GoogleTextMultilingualEmbedding002,
		maxBatch: geminiBatchLimit,
	}
	for _, opt := range opts {
		opt(&s)
	}

	dims, err := resolveDimensions(googleDimensions, s.model, s.dims)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Google{
		client:   client,
		name:     "models/" + s.model,
		dims:     dims,
		maxBatch: min(s.maxBatch, geminiBatchLimit),
	}, nil
}

// Embed converts one text into a vector.
func (g *Google) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch converts texts into vectors, one per input in input order.
func (g *Google) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	switch {
	case len(texts) == 0:
		return [][]float32{}, nil
	case len(texts) > g.maxBatch:
		return nil, fmt.Errorf("%w: got %d texts, max is %d", ErrBatchTooLarge, len(texts), g.maxBatch)
	}

	contents := make([]*genai.Content, len(texts))
	for i := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(texts[i])}}
	}

	out := int32(g.dims)
	resp, err := g.client.Models.EmbedContent(ctx, g.name, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &out,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return collectGemini(resp, len(texts))
}

// Dimensions reports the vector size this instance produces.
func (g *Google) Dimensions() int {
	return g.dims
}

// collectGemini unpacks a response, insisting on one non-empty vector
// per requested text.
func collectGemini(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	got := 0
	if resp != nil {
		got = len(resp.Embeddings)
	}
	if got != want {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, want, got)
	}

	vecs := make([][]float32, want)
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrNoEmbeddingReturned, i)
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}
