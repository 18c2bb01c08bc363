// Package cache implements a read-through TTL cache whose reads carry a
// confidence flag.  Values served from the cache are Cached; values just
// loaded from the source of truth are Verified.  Security-sensitive
// callers (staff writes, the deposit gate) ask for Verify and never act
// on a Cached value.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Confidence tells the caller how fresh a value is.
type Confidence string

const (
	Cached   Confidence = "cached"
	Verified Confidence = "verified"
)

// ErrMiss is returned by a Backend when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend stores encoded values with a TTL.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Loader fetches the authoritative value for key.
type Loader[T any] func(ctx context.Context, key string) (T, error)

// ReadThrough caches the values produced by a Loader.  It is safe for
// concurrent use.
type ReadThrough[T any] struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	load    Loader[T]
}

// NewReadThrough returns a cache that stores entries under prefix for
// ttl.  A nil backend uses an in-process MemoryBackend.
func NewReadThrough[T any](backend Backend, prefix string, ttl time.Duration, load Loader[T]) *ReadThrough[T] {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReadThrough[T]{backend: backend, prefix: prefix, ttl: ttl, load: load}
}

func (c *ReadThrough[T]) key(k string) string { return c.prefix + ":" + k }

// Get returns the cached value when present and otherwise loads,
// stores and returns it as Verified.  Backend failures fall through to
// the loader.
func (c *ReadThrough[T]) Get(ctx context.Context, key string) (T, Confidence, error) {
	if raw, err := c.backend.Get(ctx, c.key(key)); err == nil {
		var v T
		if json.Unmarshal(raw, &v) == nil {
			return v, Cached, nil
		}
	}
	v, err := c.Verify(ctx, key)
	return v, Verified, err
}

// Verify always consults the loader and refreshes the cache entry.
func (c *ReadThrough[T]) Verify(ctx context.Context, key string) (T, error) {
	v, err := c.load(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	if raw, err := json.Marshal(v); err == nil {
		_ = c.backend.Set(ctx, c.key(key), raw, c.ttl)
	}
	return v, nil
}

// Invalidate drops the entry for key.
func (c *ReadThrough[T]) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, c.key(key))
}

// RedisBackend stores entries in Redis with SETEX semantics.
type RedisBackend struct{ rdb *redis.Client }

func NewRedisBackend(rdb *redis.Client) *RedisBackend { return &RedisBackend{rdb: rdb} }

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return bs, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return b.rdb.SetEx(ctx, key, val, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// MemoryBackend is an in-process Backend used when Redis is unavailable
// and in tests.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	val []byte
	exp time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]memEntry{}, now: time.Now}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !b.now().Before(e.exp) {
		delete(b.entries, key)
		return nil, ErrMiss
	}
	return e.val, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memEntry{val: append([]byte(nil), val...), exp: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}
