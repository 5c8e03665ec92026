package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a Redis client. Pipelines use MULTI/EXEC so a
// crashed caller leaves at most one partially-applied primitive in the
// store.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an established Redis client. Connection setup and retry
// live in integration/database/redis.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return val, nil
}

func (s *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del %v: %w", keys, err)
	}
	return nil
}

func (s *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("expire %q: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Redis) LPush(ctx context.Context, key string, values ...string) error {
	if err := s.client.LPush(ctx, key, toAny(values)...).Err(); err != nil {
		return fmt.Errorf("lpush %q: %w", key, err)
	}
	return nil
}

func (s *Redis) RPush(ctx context.Context, key string, values ...string) error {
	if err := s.client.RPush(ctx, key, toAny(values)...).Err(); err != nil {
		return fmt.Errorf("rpush %q: %w", key, err)
	}
	return nil
}

func (s *Redis) LRem(ctx context.Context, key string, count int64, value string) error {
	if err := s.client.LRem(ctx, key, count, value).Err(); err != nil {
		return fmt.Errorf("lrem %q: %w", key, err)
	}
	return nil
}

func (s *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %q: %w", key, err)
	}
	return vals, nil
}

func (s *Redis) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %q: %w", key, err)
	}
	return n, nil
}

func (s *Redis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error) {
	res, err := s.client.BRPop(ctx, timeout, keys...).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("brpop %v: %w", keys, err)
	}
	return res[0], res[1], nil
}

func (s *Redis) BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) (string, error) {
	val, err := s.client.BRPopLPush(ctx, source, destination, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("brpoplpush %q -> %q: %w", source, destination, err)
	}
	return val, nil
}

func (s *Redis) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := s.client.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("scan %q: %w", match, err)
	}
	return keys, next, nil
}

func (s *Redis) Pipeline(ctx context.Context, fn func(Pipe) error) error {
	pipe := s.client.TxPipeline()
	if err := fn(redisPipe{ctx: ctx, pipe: pipe}); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

func (s *Redis) Healthcheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

type redisPipe struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

func (p redisPipe) Set(key, value string, ttl time.Duration) {
	p.pipe.Set(p.ctx, key, value, ttl)
}

func (p redisPipe) Del(keys ...string) {
	if len(keys) > 0 {
		p.pipe.Del(p.ctx, keys...)
	}
}

func (p redisPipe) Expire(key string, ttl time.Duration) {
	p.pipe.Expire(p.ctx, key, ttl)
}

func (p redisPipe) LPush(key string, values ...string) {
	p.pipe.LPush(p.ctx, key, toAny(values)...)
}

func (p redisPipe) RPush(key string, values ...string) {
	p.pipe.RPush(p.ctx, key, toAny(values)...)
}

func (p redisPipe) LRem(key string, count int64, value string) {
	p.pipe.LRem(p.ctx, key, count, value)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
