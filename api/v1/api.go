package v1

import (
	"github.com/promptq/promptq/core/binder"
	"github.com/promptq/promptq/core/reconciler"
)

// Fleet is the in-process availability view the API consults when routing
// prompts and serving the handlers stream. *reconciler.Reconciler
// satisfies it.
type Fleet interface {
	// Available reports whether any live worker advertises the handler.
	Available(handlerID string) bool
	// Snapshot returns the current availability view. Never nil; the
	// returned maps must be treated as immutable.
	Snapshot() *reconciler.Snapshot
}

// bindJSON decodes request bodies for all API endpoints with the shared
// size cap and sanitization rules.
var bindJSON = binder.JSON()
