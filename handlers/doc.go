// Package handlers ships the built-in task handlers and the registry that
// resolves fleet configs to them. A worker builds a registry, registers
// the handlers its credentials allow, and hands Resolve to the dispatcher:
//
//	reg := handlers.New(handlers.WithLogger(log))
//	reg.Register(handlers.PathEcho, handlers.EchoBuilder())
//	if apiKey != "" {
//		client := openai.NewClient(option.WithAPIKey(apiKey))
//		reg.Register(handlers.PathChat, handlers.ChatBuilder(client))
//	}
//
//	d := dispatch.New(queueManager, reg.Resolve)
//
// Three handlers are built in: echo returns the prompt unchanged and needs
// no backend, chat forwards the prompt to a hosted model, and search
// answers from a knowledge base index with retrieval-augmented generation.
package handlers
