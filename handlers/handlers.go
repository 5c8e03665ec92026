package handlers

import (
	"log/slog"
	"sync"

	"github.com/promptq/promptq/core/dispatch"
	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/task"
)

// Import paths of the built-in handlers. Fleet configs reference handlers
// by these strings.
const (
	PathEcho   = "handlers:echo"
	PathChat   = "handlers:chat"
	PathSearch = "handlers:search"
)

// Builder constructs a handler implementation from its fleet config. A
// builder runs when the dispatcher resolves the config, before
// verification.
type Builder func(cfg task.HandlerConfig) (dispatch.Handler, error)

// Registry maps import paths to the handler implementations this binary
// ships. Configs pointing at unknown paths do not resolve, and the
// dispatcher drops them at verification.
type Registry struct {
	log *slog.Logger

	mu       sync.RWMutex
	builders map[string]Builder
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates an empty registry. The caller registers the built-ins its
// credentials and backends allow.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:      slog.Default(),
		builders: make(map[string]Builder),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds an import path to a builder, replacing any previous
// binding.
func (r *Registry) Register(importPath string, b Builder) {
	if importPath == "" || b == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[importPath] = b
}

// Resolve builds the handler a config points at. It satisfies
// dispatch.Resolver.
func (r *Registry) Resolve(cfg task.HandlerConfig) (dispatch.Handler, bool) {
	r.mu.RLock()
	builder, ok := r.builders[cfg.ImportPath]
	r.mu.RUnlock()
	if !ok {
		r.log.Warn("no built-in handler for import path",
			logger.Component("handlers"),
			logger.HandlerID(cfg.HandlerID()),
			slog.String("import_path", cfg.ImportPath),
		)
		return nil, false
	}

	h, err := builder(cfg)
	if err != nil {
		r.log.Warn("handler construction failed",
			logger.Component("handlers"),
			logger.HandlerID(cfg.HandlerID()),
			logger.Error(err),
		)
		return nil, false
	}
	return h, true
}
