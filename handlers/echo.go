package handlers

import (
	"context"

	"github.com/promptq/promptq/core/dispatch"
	"github.com/promptq/promptq/core/task"
)

// Echo answers with the prompt unchanged. It exercises the whole pipeline
// without any external dependency and doubles as the verification target
// in smoke tests.
type Echo struct{}

// NewEcho creates the echo handler.
func NewEcho() *Echo {
	return &Echo{}
}

// EchoBuilder adapts NewEcho for registry registration.
func EchoBuilder() Builder {
	return func(task.HandlerConfig) (dispatch.Handler, error) {
		return NewEcho(), nil
	}
}

// Invoke returns the prompt as the answer.
func (*Echo) Invoke(_ context.Context, t task.Task) (task.Answer, error) {
	return task.Answer{Text: t.Prompt}, nil
}
