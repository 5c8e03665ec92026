package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Buckets idle longer than this are dropped by the cleanup pass.
	staleThreshold = time.Hour

	defaultCleanupInterval = 5 * time.Minute
)

// bucket is the per-key token state.
type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// refill adds RefillRate tokens per whole interval elapsed since the
// last refill, clamped to capacity. Fractional intervals wait for the
// next call.
func (b *bucket) refill(now time.Time, config Config) {
	intervals := int64(now.Sub(b.lastRefill) / config.RefillInterval)
	if intervals <= 0 {
		return
	}
	// A bucket fills completely within capacity/rate intervals; looking
	// further back would only overflow the token arithmetic.
	if full := int64(config.Capacity/config.RefillRate + 1); intervals > full {
		intervals = full
	}
	b.tokens = min(b.tokens+int(intervals)*config.RefillRate, config.Capacity)
	b.lastRefill = now
}

// MemoryStore keeps bucket state in process memory. Good for a single
// instance; a multi-instance deployment would need a shared Store so all
// replicas see the same counters.
//
// Wire Run into the application's errgroup to start the cleanup pass that
// drops idle buckets. Without it every caller ever seen stays resident.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	cleanupInterval time.Duration
	logger          *slog.Logger
	running         atomic.Bool

	bucketsCreated atomic.Int64
	bucketsRemoved atomic.Int64
}

// MemoryStoreStats reports store activity counters.
type MemoryStoreStats struct {
	BucketsCreated int64
	BucketsRemoved int64
	ActiveBuckets  int
	IsRunning      bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale buckets are collected.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreLogger sets the logger. Silent by default.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStore creates an in-memory bucket store. The cleanup loop is
// not running yet; wire Run into the application's errgroup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		cleanupInterval: defaultCleanupInterval,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// ConsumeTokens refills the key's bucket by however many whole refill
// intervals elapsed, then consumes the requested tokens. The remaining
// count goes negative when the bucket is overdrawn; that is the signal
// the Bucket limiter turns into a denial.
func (ms *MemoryStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	b, ok := ms.buckets[key]
	if !ok {
		b = &bucket{tokens: config.Capacity, lastRefill: now, lastAccess: now}
		ms.buckets[key] = b
		ms.bucketsCreated.Add(1)
	}

	b.refill(now, config)
	b.tokens -= tokens
	b.lastAccess = now

	return b.tokens, b.lastRefill.Add(config.RefillInterval), nil
}

// Reset drops the key's bucket; the next consume starts from a full one.
func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// Run returns the cleanup loop as an errgroup runner. The loop sweeps
// stale buckets every cleanup interval and exits cleanly when ctx is
// canceled. Starting a second loop on the same store is an error.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		if ms.cleanupInterval <= 0 {
			return fmt.Errorf("ratelimiter: cleanup interval must be positive, got %v", ms.cleanupInterval)
		}
		if !ms.running.CompareAndSwap(false, true) {
			return fmt.Errorf("ratelimiter: cleanup already running")
		}
		defer ms.running.Store(false)

		ms.logger.InfoContext(ctx, "rate limiter cleanup started",
			slog.Duration("cleanup_interval", ms.cleanupInterval))

		ticker := time.NewTicker(ms.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				ms.logger.Info("rate limiter cleanup stopped")
				return nil
			case <-ticker.C:
				ms.collect(time.Now())
			}
		}
	}
}

// collect drops buckets whose last access predates the stale cutoff
// relative to now.
func (ms *MemoryStore) collect(now time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > staleThreshold {
			delete(ms.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		ms.bucketsRemoved.Add(int64(removed))
		ms.logger.Debug("stale rate limit buckets dropped", slog.Int("count", removed))
	}
}

// Stats returns activity counters.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.Lock()
	active := len(ms.buckets)
	ms.mu.Unlock()

	return MemoryStoreStats{
		BucketsCreated: ms.bucketsCreated.Load(),
		BucketsRemoved: ms.bucketsRemoved.Load(),
		ActiveBuckets:  active,
		IsRunning:      ms.running.Load(),
	}
}

// Healthcheck fails when cleanup is configured but its loop is not
// running, which would mean unbounded bucket growth.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	if ms.cleanupInterval > 0 && !ms.running.Load() {
		return fmt.Errorf("ratelimiter: cleanup loop not running")
	}
	return nil
}
