// Package cachemanager provides a typed, TTL-based cache over go-cache.
package cachemanager

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/newhook/testnorm/internal/logging"
)

const (
	// DefaultExpiration is the TTL applied when none is configured.
	DefaultExpiration = 5 * time.Minute
	// DefaultCleanupInterval is how often expired items are purged.
	DefaultCleanupInterval = 10 * time.Minute
	// NoExpiration stores an item until it is deleted.
	NoExpiration = gocache.NoExpiration
)

// CacheManager is a typed key/value cache with per-item expiry.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetMultiple(ctx context.Context, keys []K) (map[K]V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	// Keys returns the unexpired keys in sorted order.
	Keys(ctx context.Context) []string
	// DeleteExpired purges expired items and returns how many were removed.
	DeleteExpired(ctx context.Context) int
}

// InMemoryCacheManager implements CacheManager in process memory.
type InMemoryCacheManager[K comparable, V any] struct {
	name  string
	cache *gocache.Cache
}

var _ CacheManager[string, int] = (*InMemoryCacheManager[string, int])(nil)

// NewInMemoryCacheManager creates a cache whose items expire after
// defaultExpiration unless a TTL is given on Set.
func NewInMemoryCacheManager[K comparable, V any](name string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		name:  name,
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func keyString[K comparable](key K) string {
	if s, ok := any(key).(string); ok {
		return s
	}
	return fmt.Sprint(key)
}

func (c *InMemoryCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V
	raw, found := c.cache.Get(keyString(key))
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		logging.WarnContext(ctx, "cache value has unexpected type", "cache", c.name, "key", keyString(key), "type", fmt.Sprintf("%T", raw))
		return zero, false
	}
	return v, true
}

func (c *InMemoryCacheManager[K, V]) GetMultiple(ctx context.Context, keys []K) (map[K]V, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	var out map[K]V
	for _, k := range keys {
		v, ok := c.Get(ctx, k)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[K]V, len(keys))
		}
		out[k] = v
	}
	return out, out != nil
}

// GetWithRefresh returns the value and, when present, resets its TTL.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	v, ok := c.Get(ctx, key)
	if ok {
		c.cache.Set(keyString(key), v, ttl)
	}
	return v, ok
}

func (c *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.cache.Set(keyString(key), value, ttl)
}

func (c *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	for _, k := range keys {
		c.cache.Delete(keyString(k))
	}
	return nil
}

func (c *InMemoryCacheManager[K, V]) Flush(ctx context.Context) error {
	logging.DebugContext(ctx, "flushing cache", "cache", c.name, "items", c.cache.ItemCount())
	c.cache.Flush()
	return nil
}

func (c *InMemoryCacheManager[K, V]) Keys(_ context.Context) []string {
	items := c.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *InMemoryCacheManager[K, V]) DeleteExpired(_ context.Context) int {
	before := c.cache.ItemCount()
	c.cache.DeleteExpired()
	return before - c.cache.ItemCount()
}
