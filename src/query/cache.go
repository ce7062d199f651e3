package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds the number of cached results.
const DefaultSize = 512

// Query pairs a key with the function that produces its value.
type Query[T any] struct {
	Key Key
	Fn  func(ctx context.Context) (T, error)
}

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
}

// Cache is a bounded, concurrency-safe result cache.
type Cache struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, entry]
	staleTime time.Duration
	now       func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStaleTime makes entries older than d refetch on the next Fetch.
// Zero keeps entries fresh until invalidated or evicted.
func WithStaleTime(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.staleTime = d
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache holding at most size results.
func NewCache(size int, opts ...CacheOption) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	c := &Cache{
		entries: entries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached value for key, fresh or not.
func (c *Cache) Get(key Key) (any, bool) {
	e, ok := c.entries.Get(key.String())
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key Key, value any) {
	c.entries.Add(key.String(), entry{key: key, value: value, fetchedAt: c.now()})
}

// Invalidate removes every entry whose key starts with prefix and returns how many were removed.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Peek(k)
		if !ok || !e.key.HasPrefix(prefix) {
			continue
		}
		if c.entries.Remove(k) {
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) fresh(key Key) (any, bool) {
	e, ok := c.entries.Get(key.String())
	if !ok {
		return nil, false
	}
	if c.staleTime > 0 && c.now().Sub(e.fetchedAt) > c.staleTime {
		return nil, false
	}
	return e.value, true
}

// Fetch returns the cached value of q or runs q.Fn and caches its result.
// Errors are returned without being cached.
func Fetch[T any](ctx context.Context, c *Cache, q Query[T]) (T, error) {
	if v, ok := c.fresh(q.Key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	value, err := q.Fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(q.Key, value)
	return value, nil
}

// Mutation is a write followed by an optional cache update.
type Mutation[In, Out any] struct {
	Fn        func(ctx context.Context, in In) (Out, error)
	OnSuccess func(ctx context.Context, in In, out Out) error
}

// Run executes the mutation. OnSuccess runs only after Fn succeeds; its error is
// returned together with Fn's result.
func (m Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	out, err := m.Fn(ctx, in)
	if err != nil {
		return out, err
	}
	if m.OnSuccess != nil {
		if err := m.OnSuccess(ctx, in, out); err != nil {
			return out, err
		}
	}
	return out, nil
}
