package vectorizer

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI embedding models.
const (
	OpenAITextEmbedding3Small = "text-embedding-3-small"
	OpenAITextEmbedding3Large = "text-embedding-3-large"
)

// openaiBatchLimit is the most inputs one embeddings call accepts.
const openaiBatchLimit = 2048

// openaiDimensions maps each supported model to its output sizes, the
// default first.
var openaiDimensions = map[string][]int{
	OpenAITextEmbedding3Small: {1536, 512},
	OpenAITextEmbedding3Large: {3072, 256, 1024},
}

// openaiSettings collects option values before the client exists.
type openaiSettings struct {
	model      string
	dims       int
	maxBatch   int
	httpClient *http.Client
}

// OpenAIOption configures NewOpenAI.
type OpenAIOption func(*openaiSettings)

// WithOpenAIModel selects the embedding model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(s *openaiSettings) { s.model = model }
}

// WithOpenAIDimensions requests an output vector size. Zero keeps the
// model default.
func WithOpenAIDimensions(dims int) OpenAIOption {
	return func(s *openaiSettings) { s.dims = dims }
}

// WithOpenAIMaxBatchSize lowers the EmbedBatch input cap below the API
// limit of 2048 inputs per call.
func WithOpenAIMaxBatchSize(n int) OpenAIOption {
	return func(s *openaiSettings) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithOpenAIHTTPClient routes API traffic through a caller-owned HTTP
// client. The API key given to NewOpenAI still applies.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(s *openaiSettings) { s.httpClient = client }
}

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	client   openai.Client
	model    openai.EmbeddingModel
	dims     int64
	maxBatch int
}

// NewOpenAI builds an OpenAI vectorizer. The default is
// text-embedding-3-small at 1536 dimensions.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	s := openaiSettings{
		model:    OpenAITextEmbedding3Small,
		maxBatch: openaiBatchLimit,
	}
	for _, opt := range opts {
		opt(&s)
	}

	dims, err := resolveDimensions(openaiDimensions, s.model, s.dims)
	if err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(s.httpClient))
	}

	return &OpenAI{
		client:   openai.NewClient(reqOpts...),
		model:    openai.EmbeddingModel(s.model),
		dims:     int64(dims),
		maxBatch: min(s.maxBatch, openaiBatchLimit),
	}, nil
}

// Embed converts one text into a vector.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch converts texts into vectors, one per input in input order.
// The API reports an index with every vector; placement trusts the
// index rather than response order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	switch {
	case len(texts) == 0:
		return [][]float32{}, nil
	case len(texts) > o.maxBatch:
		return nil, fmt.Errorf("%w: got %d texts, max is %d", ErrBatchTooLarge, len(texts), o.maxBatch)
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model:      o.model,
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: slices.Clone(texts)},
		Dimensions: openai.Int(o.dims),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(texts), len(resp.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= int64(len(texts)) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrEmbeddingCountMismatch, d.Index)
		}
		vecs[d.Index] = narrow(d.Embedding)
	}
	for i, vec := range vecs {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrNoEmbeddingReturned, i)
		}
	}
	return vecs, nil
}

// Dimensions reports the vector size this instance produces.
func (o *OpenAI) Dimensions() int {
	return int(o.dims)
}

// narrow converts the API's float64 values to the float32 the vector
// index stores.
func narrow(values []float64) []float32 {
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return vec
}
