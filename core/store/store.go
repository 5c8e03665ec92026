package store

import (
	"context"
	"time"
)

// Store is the shared state backing the queue system. It deliberately
// mirrors the small slice of Redis the system depends on: string records,
// lists, key expiry, blocking pops, key scans, and atomic multi-key
// pipelines. The single-threaded command execution of the backing store is
// the only cross-process synchronization the design relies on.
//
// All read misses, including blocking pops that time out, return
// ErrNotFound.
type Store interface {
	// Get returns the string value stored under key.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// Expire resets the ttl of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// LPush prepends values to the list head, leftmost argument pushed
	// first. RPush appends to the tail in argument order.
	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	// LRem removes count occurrences of value: count > 0 scans from the
	// head, count < 0 from the tail, 0 removes all.
	LRem(ctx context.Context, key string, count int64, value string) error
	// LRange returns the elements between start and stop inclusive;
	// negative indices count from the tail.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)

	// BRPop pops the tail element of the first non-empty list, waiting up
	// to timeout. Returns the key it popped from and the value.
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error)
	// BRPopLPush atomically moves the tail of source to the head of
	// destination, waiting up to timeout for an element to appear.
	BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) (string, error)

	// Scan iterates keys matching a glob pattern in batches. Callers pass
	// the returned cursor back until it is zero.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// Pipeline queues the commands issued by fn and applies them
	// atomically.
	Pipeline(ctx context.Context, fn func(Pipe) error) error

	// Healthcheck verifies the store is reachable.
	Healthcheck(ctx context.Context) error
}

// Pipe collects commands inside Pipeline. Commands are queued, not
// executed; failures surface from Pipeline itself.
type Pipe interface {
	Set(key, value string, ttl time.Duration)
	Del(keys ...string)
	Expire(key string, ttl time.Duration)
	LPush(key string, values ...string)
	RPush(key string, values ...string)
	LRem(key string, count int64, value string)
}
