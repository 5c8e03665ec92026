package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/promptq/promptq/core/dispatch"
	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/pkg/vectorizer"
)

const (
	defaultSearchIndex = "knowledge_base"
	defaultVectorField = "embedding"
	defaultSearchTopK  = 5
)

const searchPromptTemplate = `Используя информацию из контекста, дай развёрнутый ответ на вопрос.
Отвечай только на заданный вопрос. Если ответа в контексте нет, честно скажи об этом.
Ссылайся на документы по их номерам, когда это уместно.

%s
Вопрос: %s`

// document is one retrieved knowledge base entry.
type document struct {
	Text   string `json:"text"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

// Search answers prompts with retrieval-augmented generation: the prompt
// is embedded, the nearest knowledge base documents come out of the search
// index, and a chat model writes the final answer from them. Document
// mentions in the answer are rewritten into links.
type Search struct {
	search   *opensearchgo.Client
	embedder vectorizer.Vectorizer
	llm      openai.Client

	model     openai.ChatModel
	maxTokens int64
	index     string
	field     string
	topK      int
}

// SearchOption configures a Search handler.
type SearchOption func(*Search)

// WithSearchIndex sets the knowledge base index name.
func WithSearchIndex(index string) SearchOption {
	return func(s *Search) {
		if index != "" {
			s.index = index
		}
	}
}

// WithSearchVectorField sets the kNN vector field name.
func WithSearchVectorField(field string) SearchOption {
	return func(s *Search) {
		if field != "" {
			s.field = field
		}
	}
}

// WithSearchTopK sets how many documents feed the answer.
func WithSearchTopK(k int) SearchOption {
	return func(s *Search) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithSearchModel overrides the completion model.
func WithSearchModel(model string) SearchOption {
	return func(s *Search) {
		if model != "" {
			s.model = openai.ChatModel(model)
		}
	}
}

// WithSearchMaxTokens bounds the completion length.
func WithSearchMaxTokens(n int64) SearchOption {
	return func(s *Search) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// NewSearch creates the retrieval handler on existing clients. The
// embedder decides the vector space, so it must match the one the index
// was built with.
func NewSearch(search *opensearchgo.Client, embedder vectorizer.Vectorizer, llm openai.Client, opts ...SearchOption) *Search {
	s := &Search{
		search:    search,
		embedder:  embedder,
		llm:       llm,
		model:     defaultChatModel,
		maxTokens: defaultChatMaxTokens,
		index:     defaultSearchIndex,
		field:     defaultVectorField,
		topK:      defaultSearchTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchBuilder adapts NewSearch for registry registration.
func SearchBuilder(search *opensearchgo.Client, embedder vectorizer.Vectorizer, llm openai.Client, opts ...SearchOption) Builder {
	return func(task.HandlerConfig) (dispatch.Handler, error) {
		return NewSearch(search, embedder, llm, opts...), nil
	}
}

// Invoke embeds the prompt, retrieves the closest documents, and asks the
// model to answer from them.
func (s *Search) Invoke(ctx context.Context, t task.Task) (task.Answer, error) {
	vector, err := s.embedder.Embed(ctx, t.Prompt)
	if err != nil {
		return task.Answer{}, fmt.Errorf("embed prompt: %w", err)
	}

	docs, err := s.retrieve(ctx, vector)
	if err != nil {
		return task.Answer{}, fmt.Errorf("retrieve documents: %w", err)
	}

	prompt := fmt.Sprintf(searchPromptTemplate, contextBlock(docs), t.Prompt)
	text, err := complete(ctx, s.llm, s.model, s.maxTokens, openai.UserMessage(prompt))
	if err != nil {
		return task.Answer{}, err
	}

	return task.Answer{
		Text:         linkDocuments(text, docs),
		RelevantDocs: relevantDocs(docs),
	}, nil
}

// retrieve runs a kNN query and unwraps the document sources.
func (s *Search) retrieve(ctx context.Context, vector []float32) ([]document, error) {
	query := map[string]any{
		"size":    s.topK,
		"_source": []string{"text", "link", "source"},
		"query": map[string]any{
			"knn": map[string]any{
				s.field: map[string]any{
					"vector": vector,
					"k":      s.topK,
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, s.search)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, resp.Status())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	docs := make([]document, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// contextBlock renders the retrieved documents the way the prompt template
// expects them.
func contextBlock(docs []document) string {
	var b strings.Builder
	b.WriteString("Extracted documents:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "Document %d:::\n%s\n", i, doc.Text)
	}
	return b.String()
}

// linkDocuments rewrites "Document N" mentions into markdown links.
// Highest index first so single-digit refs never clobber longer ones.
func linkDocuments(answer string, docs []document) string {
	for i := len(docs) - 1; i >= 0; i-- {
		if docs[i].Link == "" {
			continue
		}
		ref := fmt.Sprintf("Document %d", i)
		if strings.Contains(answer, ref) {
			answer = strings.ReplaceAll(answer, ref, fmt.Sprintf("[%s](%s)", ref, docs[i].Link))
		}
	}
	return answer
}

// relevantDocs maps document sources to their links for the answer record.
func relevantDocs(docs []document) map[string]string {
	out := make(map[string]string, len(docs))
	for _, doc := range docs {
		if doc.Source == "" {
			continue
		}
		out[doc.Source] = doc.Link
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
