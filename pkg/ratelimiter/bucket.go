package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Store persists bucket state. Implementations must apply the
// refill-and-consume step atomically per key.
type Store interface {
	// ConsumeTokens refills the bucket according to config, then consumes
	// the requested tokens. The returned remaining count is negative when
	// the bucket is overdrawn.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset drops the bucket state for the key, restoring full capacity on
	// the next consume.
	Reset(ctx context.Context, key string) error
}

// Config defines token bucket parameters.
type Config struct {
	Capacity       int           // Maximum tokens the bucket holds
	RefillRate     int           // Tokens added per refill interval
	RefillInterval time.Duration // How often tokens are added
}

// Validate checks that the bucket parameters are usable.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result reports the outcome of a rate limit check.
type Result struct {
	Limit     int       // Bucket capacity
	Remaining int       // Tokens left after the check; negative when overdrawn
	ResetAt   time.Time // When the next refill lands
}

// Allowed reports whether the requested tokens were available.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait for the next refill. Zero when the
// request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	retry := time.Until(r.ResetAt)
	if retry < 0 {
		return 0
	}
	return retry
}

// RateLimiter is the rate limiting contract.
type RateLimiter interface {
	// Allow consumes one token for the key.
	Allow(ctx context.Context, key string) (*Result, error)

	// AllowN consumes n tokens for the key.
	AllowN(ctx context.Context, key string, n int) (*Result, error)
}

// Bucket implements RateLimiter with the token bucket algorithm on top of
// a pluggable Store.
type Bucket struct {
	store  Store
	config Config
}

// NewBucket creates a rate limiter backed by the given store.
func NewBucket(store Store, config Config) (*Bucket, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: config}, nil
}

// Allow consumes one token for the key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for the key. n must be positive and within the
// bucket capacity; a larger request could never be satisfied.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	if n > b.config.Capacity {
		return nil, fmt.Errorf("%w: %d exceeds capacity %d", ErrInvalidTokenCount, n, b.config.Capacity)
	}

	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: b.config.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// Status reports the current bucket state without consuming tokens.
func (b *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, 0, b.config)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: b.config.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// Reset clears the bucket state for the key.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
