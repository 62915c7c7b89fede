package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/newhook/testnorm/internal/cachemanager"
	"github.com/newhook/testnorm/internal/logging"
)

// Stats describes the contents of a cache.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// timed wraps a cached value with the data needed to expire it on read.
type timed[T any] struct {
	Value    T
	CachedAt time.Time
	TTL      time.Duration
}

func (t timed[T]) expired(now time.Time) bool {
	return t.TTL > 0 && now.Sub(t.CachedAt) > t.TTL
}

// ttlCache evaluates expiry on every read and evicts stale entries.
type ttlCache[T any] struct {
	name  string
	store cachemanager.CacheManager[string, timed[T]]
	ttl   time.Duration
	now   func() time.Time
}

func newTTLCache[T any](name string, store cachemanager.CacheManager[string, timed[T]], ttl time.Duration) *ttlCache[T] {
	if store == nil {
		store = cachemanager.NewInMemoryCacheManager[string, timed[T]](name, cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval)
	}
	if ttl <= 0 {
		ttl = cachemanager.DefaultExpiration
	}
	return &ttlCache[T]{name: name, store: store, ttl: ttl, now: time.Now}
}

func (c *ttlCache[T]) get(ctx context.Context, key string) (timed[T], bool) {
	e, ok := c.store.Get(ctx, key)
	if !ok {
		return timed[T]{}, false
	}
	if e.expired(c.now()) {
		if err := c.store.Delete(ctx, key); err != nil {
			logging.WarnContext(ctx, "failed to evict expired entry", "cache", c.name, "key", key, "error", err)
		}
		return timed[T]{}, false
	}
	return e, true
}

func (c *ttlCache[T]) set(ctx context.Context, key string, v T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	// The store keeps entries until they are evicted here so that expiry is
	// always decided against c.now.
	c.store.Set(ctx, key, timed[T]{Value: v, CachedAt: c.now(), TTL: ttl}, cachemanager.NoExpiration)
}

func (c *ttlCache[T]) delete(ctx context.Context, keys ...string) error {
	return c.store.Delete(ctx, keys...)
}

// clear removes every key containing pattern, or everything when pattern
// is empty. It returns the number of keys removed.
func (c *ttlCache[T]) clear(ctx context.Context, pattern string) (int, error) {
	keys := c.store.Keys(ctx)
	if pattern == "" {
		return len(keys), c.store.Flush(ctx)
	}
	var doomed []string
	for _, k := range keys {
		if strings.Contains(k, pattern) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	return len(doomed), c.store.Delete(ctx, doomed...)
}

// sweep evicts every expired entry and returns how many were removed.
func (c *ttlCache[T]) sweep(ctx context.Context) int {
	removed := c.store.DeleteExpired(ctx)
	for _, k := range c.store.Keys(ctx) {
		if e, ok := c.store.Get(ctx, k); ok && e.expired(c.now()) {
			if err := c.store.Delete(ctx, k); err == nil {
				removed++
			}
		}
	}
	return removed
}

func (c *ttlCache[T]) stats(ctx context.Context) Stats {
	keys := c.store.Keys(ctx)
	return Stats{Size: len(keys), Keys: keys}
}

// Entry is a cached discovery report.
type Entry struct {
	Report *Report
	// ContentHash is the SHA-256 of the raw output the report was built
	// from. It is recorded but not compared before reuse.
	ContentHash string
	CachedAt    time.Time
	TTL         time.Duration
}

type discoveryValue struct {
	report      *Report
	contentHash string
}

// Cache holds discovery reports keyed by target identifier.
type Cache struct {
	c *ttlCache[discoveryValue]
}

// NewCache creates an in-memory discovery cache. A non-positive ttl uses
// the default expiration.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: newTTLCache[discoveryValue]("discovery", nil, ttl)}
}

// Get returns the unexpired entry for target.
func (c *Cache) Get(ctx context.Context, target string) (*Entry, bool) {
	t, ok := c.c.get(ctx, target)
	if !ok {
		return nil, false
	}
	return &Entry{Report: t.Value.report, ContentHash: t.Value.contentHash, CachedAt: t.CachedAt, TTL: t.TTL}, true
}

// Set stores a report for target along with the hash of its raw output.
// A positive ttl overrides the cache default.
func (c *Cache) Set(ctx context.Context, target string, report *Report, raw string, ttl time.Duration) {
	c.c.set(ctx, target, discoveryValue{report: report, contentHash: ContentHash(raw)}, ttl)
}

// Delete removes the entries for targets.
func (c *Cache) Delete(ctx context.Context, targets ...string) error {
	return c.c.delete(ctx, targets...)
}

// Clear removes entries whose key contains pattern, or all entries.
func (c *Cache) Clear(ctx context.Context, pattern string) (int, error) {
	return c.c.clear(ctx, pattern)
}

// Sweep evicts expired entries.
func (c *Cache) Sweep(ctx context.Context) int {
	return c.c.sweep(ctx)
}

// Stats reports the cache size and keys.
func (c *Cache) Stats(ctx context.Context) Stats {
	return c.c.stats(ctx)
}

// ContentHash returns the hex SHA-256 of raw.
func ContentHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// QueryCache holds target-listing query results keyed by a hash of the
// sorted query paths and test types.
type QueryCache[T any] struct {
	c *ttlCache[T]
}

// NewQueryCache creates an in-memory query cache.
func NewQueryCache[T any](ttl time.Duration) *QueryCache[T] {
	return &QueryCache[T]{c: newTTLCache[T]("query", nil, ttl)}
}

// QueryKey hashes the query parameters. Parameter order never changes the key.
func QueryKey(paths, types []string) string {
	p := append([]string(nil), paths...)
	ty := append([]string(nil), types...)
	sort.Strings(p)
	sort.Strings(ty)

	h := sha256.New()
	h.Write([]byte(strings.Join(p, "\x00")))
	h.Write([]byte{0x01})
	h.Write([]byte(strings.Join(ty, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for the query.
func (q *QueryCache[T]) Get(ctx context.Context, paths, types []string) (T, bool) {
	t, ok := q.c.get(ctx, QueryKey(paths, types))
	return t.Value, ok
}

// Set caches the value for the query. A positive ttl overrides the default.
func (q *QueryCache[T]) Set(ctx context.Context, paths, types []string, v T, ttl time.Duration) {
	q.c.set(ctx, QueryKey(paths, types), v, ttl)
}

// Delete removes the cached value for the query.
func (q *QueryCache[T]) Delete(ctx context.Context, paths, types []string) error {
	return q.c.delete(ctx, QueryKey(paths, types))
}

// Clear removes entries whose key contains pattern, or all entries.
func (q *QueryCache[T]) Clear(ctx context.Context, pattern string) (int, error) {
	return q.c.clear(ctx, pattern)
}

// Sweep evicts expired entries.
func (q *QueryCache[T]) Sweep(ctx context.Context) int {
	return q.c.sweep(ctx)
}

// Stats reports the cache size and keys.
func (q *QueryCache[T]) Stats(ctx context.Context) Stats {
	return q.c.stats(ctx)
}
