package store

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Millisecond

// Memory implements Store with in-process maps. It exists for tests and
// local development: same observable semantics as the Redis
// implementation, no network. Blocking pops poll under the lock instead of
// parking on the server.
//
// Expired entries are dropped lazily on access; nothing sweeps in the
// background.
type Memory struct {
	mu      sync.RWMutex
	strings map[string]memoryEntry
	lists   map[string][]string
	listExp map[string]time.Time
	poll    time.Duration
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithPollInterval tunes how often blocking pops re-check their lists.
func WithPollInterval(interval time.Duration) MemoryOption {
	return func(m *Memory) {
		if interval > 0 {
			m.poll = interval
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		strings: make(map[string]memoryEntry),
		lists:   make(map[string][]string),
		listExp: make(map[string]time.Time),
		poll:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.strings[key]
	if !ok || e.expired(time.Now()) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value, ttl, time.Now())
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delLocked(keys...)
	return nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.expireLocked(key, ttl, time.Now()) {
		return ErrNotFound
	}
	return nil
}

func (m *Memory) LPush(ctx context.Context, key string, values ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lpushLocked(key, time.Now(), values...)
	return nil
}

func (m *Memory) RPush(ctx context.Context, key string, values ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rpushLocked(key, time.Now(), values...)
	return nil
}

func (m *Memory) LRem(ctx context.Context, key string, count int64, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lremLocked(key, count, value, time.Now())
	return nil
}

func (m *Memory) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.peekListLocked(key, time.Now())
	n := int64(len(list))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *Memory) LLen(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.peekListLocked(key, time.Now()))), nil
}

func (m *Memory) BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		now := time.Now()
		for _, key := range keys {
			if v, ok := m.rpopLocked(key, now); ok {
				m.mu.Unlock()
				return key, v, nil
			}
		}
		m.mu.Unlock()

		if v, err := m.waitForNext(ctx, deadline); err != nil || !v {
			return "", "", coalesceWaitErr(err)
		}
	}
}

func (m *Memory) BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		now := time.Now()
		if v, ok := m.rpopLocked(source, now); ok {
			m.lpushLocked(destination, now, v)
			m.mu.Unlock()
			return v, nil
		}
		m.mu.Unlock()

		if v, err := m.waitForNext(ctx, deadline); err != nil || !v {
			return "", coalesceWaitErr(err)
		}
	}
}

// waitForNext sleeps one poll interval, reporting false once the deadline
// passed.
func (m *Memory) waitForNext(ctx context.Context, deadline time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false, nil
	}
	wait := min(m.poll, remaining)
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(wait):
		return true, nil
	}
}

func coalesceWaitErr(err error) error {
	if err != nil {
		return err
	}
	return ErrNotFound
}

func (m *Memory) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var keys []string
	for key, e := range m.strings {
		if !e.expired(now) && globMatch(match, key) {
			keys = append(keys, key)
		}
	}
	for key := range m.lists {
		if len(m.peekListLocked(key, now)) > 0 && globMatch(match, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, 0, nil
}

func (m *Memory) Pipeline(ctx context.Context, fn func(Pipe) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := &memoryPipe{}
	if err := fn(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, op := range p.ops {
		op(m, now)
	}
	return nil
}

func (m *Memory) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

type memoryPipe struct {
	ops []func(m *Memory, now time.Time)
}

func (p *memoryPipe) Set(key, value string, ttl time.Duration) {
	p.ops = append(p.ops, func(m *Memory, now time.Time) { m.setLocked(key, value, ttl, now) })
}

func (p *memoryPipe) Del(keys ...string) {
	p.ops = append(p.ops, func(m *Memory, _ time.Time) { m.delLocked(keys...) })
}

func (p *memoryPipe) Expire(key string, ttl time.Duration) {
	p.ops = append(p.ops, func(m *Memory, now time.Time) { m.expireLocked(key, ttl, now) })
}

func (p *memoryPipe) LPush(key string, values ...string) {
	p.ops = append(p.ops, func(m *Memory, now time.Time) { m.lpushLocked(key, now, values...) })
}

func (p *memoryPipe) RPush(key string, values ...string) {
	p.ops = append(p.ops, func(m *Memory, now time.Time) { m.rpushLocked(key, now, values...) })
}

func (p *memoryPipe) LRem(key string, count int64, value string) {
	p.ops = append(p.ops, func(m *Memory, now time.Time) { m.lremLocked(key, count, value, now) })
}

// Locked primitives. Callers hold mu.

func (m *Memory) setLocked(key, value string, ttl time.Duration, now time.Time) {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.strings[key] = e
}

func (m *Memory) delLocked(keys ...string) {
	for _, key := range keys {
		delete(m.strings, key)
		delete(m.lists, key)
		delete(m.listExp, key)
	}
}

func (m *Memory) expireLocked(key string, ttl time.Duration, now time.Time) bool {
	if e, ok := m.strings[key]; ok && !e.expired(now) {
		e.expiresAt = now.Add(ttl)
		m.strings[key] = e
		return true
	}
	if len(m.listLocked(key, now)) > 0 {
		m.listExp[key] = now.Add(ttl)
		return true
	}
	return false
}

// listLocked returns the live list for key, dropping it first if its
// expiry passed. Callers must hold the write lock; peekListLocked is the
// read-lock-safe variant.
func (m *Memory) listLocked(key string, now time.Time) []string {
	if exp, ok := m.listExp[key]; ok && now.After(exp) {
		delete(m.lists, key)
		delete(m.listExp, key)
		return nil
	}
	return m.lists[key]
}

func (m *Memory) peekListLocked(key string, now time.Time) []string {
	if exp, ok := m.listExp[key]; ok && now.After(exp) {
		return nil
	}
	return m.lists[key]
}

func (m *Memory) lpushLocked(key string, now time.Time, values ...string) {
	list := m.listLocked(key, now)
	for _, v := range values {
		list = append([]string{v}, list...)
	}
	m.lists[key] = list
}

func (m *Memory) rpushLocked(key string, now time.Time, values ...string) {
	m.lists[key] = append(m.listLocked(key, now), values...)
}

func (m *Memory) rpopLocked(key string, now time.Time) (string, bool) {
	list := m.listLocked(key, now)
	if len(list) == 0 {
		return "", false
	}
	v := list[len(list)-1]
	m.storeListLocked(key, list[:len(list)-1])
	return v, true
}

func (m *Memory) lremLocked(key string, count int64, value string, now time.Time) {
	list := m.listLocked(key, now)
	if len(list) == 0 {
		return
	}

	var out []string
	switch {
	case count >= 0:
		limit := count
		for _, v := range list {
			if v == value && (count == 0 || limit > 0) {
				if limit > 0 {
					limit--
				}
				continue
			}
			out = append(out, v)
		}
	default:
		limit := -count
		for i := len(list) - 1; i >= 0; i-- {
			if list[i] == value && limit > 0 {
				limit--
				continue
			}
			out = append([]string{list[i]}, out...)
		}
	}
	m.storeListLocked(key, out)
}

// storeListLocked writes the list back, removing the key entirely when it
// emptied, the same way a drained Redis list disappears.
func (m *Memory) storeListLocked(key string, list []string) {
	if len(list) == 0 {
		delete(m.lists, key)
		delete(m.listExp, key)
		return
	}
	m.lists[key] = list
}

// globMatch applies Redis-style glob patterns. Malformed patterns match
// nothing.
func globMatch(pattern, key string) bool {
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
