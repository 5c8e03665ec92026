// Package registry tracks which workers are alive and which handlers they
// serve.
//
// Liveness is TTL-based: a worker writes worker:{unix_nanos} with a 30
// second TTL and refreshes it every 15 seconds. Two missed heartbeats and
// the key expires, which is how the rest of the system notices a dead
// worker; no explicit failure detection exists. The reconciler reads the
// aggregate through LiveHandlers and reroutes queues when the handler set
// changes.
package registry
