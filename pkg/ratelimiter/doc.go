// Package ratelimiter implements token bucket rate limiting over a
// pluggable Store.
//
// A bucket holds Capacity tokens and gains RefillRate more per
// RefillInterval, so clients can burst up to the capacity while the
// sustained rate stays bounded. Consuming is a single atomic
// refill-then-subtract in the store; the remaining count going negative
// is the denial signal, and Result carries what a handler needs for
// X-RateLimit headers and Retry-After.
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       30,
//		RefillRate:     30,
//		RefillInterval: time.Minute,
//	})
//
//	res, err := limiter.Allow(ctx, clientKey)
//	if err == nil && !res.Allowed() {
//		// deny, res.RetryAfter() tells the client when to come back
//	}
//
// The enqueue endpoint uses this through the RateLimit middleware, keyed
// by the authenticated user. MemoryStore is per-instance; replicas do not
// share counters.
package ratelimiter
