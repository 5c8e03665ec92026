// Package app assembles the PromptQ API server: configuration shared with
// the worker binary, the typed request context, the route table and the
// background loops (fleet reconciler, dead letter janitor, optional cold
// store replication).
//
// The package is intentionally thin. Behavior lives in core/* and api/v1;
// app only decides what talks to what and in which order requests pass
// through middleware.
package app
