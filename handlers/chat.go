package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/promptq/promptq/core/dispatch"
	"github.com/promptq/promptq/core/task"
)

const (
	defaultChatModel     = openai.ChatModelGPT4oMini
	defaultChatMaxTokens = 512
	defaultSystemPrompt  = "Ты — помощник, который даёт краткие ответы."
)

// Chat answers prompts with a hosted chat model.
type Chat struct {
	client    openai.Client
	model     openai.ChatModel
	system    string
	maxTokens int64
}

// ChatOption configures a Chat handler.
type ChatOption func(*Chat)

// WithChatModel overrides the completion model.
func WithChatModel(model string) ChatOption {
	return func(c *Chat) {
		if model != "" {
			c.model = openai.ChatModel(model)
		}
	}
}

// WithChatSystemPrompt overrides the system prompt.
func WithChatSystemPrompt(prompt string) ChatOption {
	return func(c *Chat) {
		if prompt != "" {
			c.system = prompt
		}
	}
}

// WithChatMaxTokens bounds the completion length.
func WithChatMaxTokens(n int64) ChatOption {
	return func(c *Chat) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewChat creates the chat handler on an existing client.
func NewChat(client openai.Client, opts ...ChatOption) *Chat {
	c := &Chat{
		client:    client,
		model:     defaultChatModel,
		system:    defaultSystemPrompt,
		maxTokens: defaultChatMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatBuilder adapts NewChat for registry registration.
func ChatBuilder(client openai.Client, opts ...ChatOption) Builder {
	return func(task.HandlerConfig) (dispatch.Handler, error) {
		return NewChat(client, opts...), nil
	}
}

// Invoke sends the prompt to the model and returns the trimmed reply.
func (c *Chat) Invoke(ctx context.Context, t task.Task) (task.Answer, error) {
	text, err := complete(ctx, c.client, c.model, c.maxTokens,
		openai.SystemMessage(c.system),
		openai.UserMessage(t.Prompt),
	)
	if err != nil {
		return task.Answer{}, err
	}
	return task.Answer{Text: text}, nil
}

// complete runs one chat completion and returns the trimmed first choice.
func complete(ctx context.Context, client openai.Client, model openai.ChatModel, maxTokens int64, messages ...openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     model,
		MaxTokens: openai.Int(maxTokens),
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
