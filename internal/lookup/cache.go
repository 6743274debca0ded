package lookup

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cachedResult struct {
	entries   []Entry
	timestamp string
}

// Cache keeps lookup results keyed by lookup hash. It is safe for
// concurrent use.
type Cache struct {
	lru *expirable.LRU[string, cachedResult]
}

// NewCache returns a cache holding up to size results for ttl. A zero ttl
// keeps results until they are evicted or purged.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, cachedResult](size, nil, ttl)}
}

// Wrap returns a lookup that serves l's results from the cache when
// present and stores them otherwise.
func (c *Cache) Wrap(l ListLookup) ListLookup {
	return &cachedLookup{inner: l, cache: c}
}

// Purge drops all cached results.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.lru.Len()
}

type cachedLookup struct {
	inner     ListLookup
	cache     *Cache
	fromCache bool
	timestamp string
}

func (l *cachedLookup) Lookup(ctx context.Context) ([]Entry, error) {
	key := l.inner.Hash()
	if r, ok := l.cache.lru.Get(key); ok {
		l.fromCache = true
		l.timestamp = r.timestamp
		return slices.Clone(r.entries), nil
	}

	entries, err := l.inner.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	l.fromCache = false
	l.timestamp = l.inner.Timestamp()
	l.cache.lru.Add(key, cachedResult{entries: slices.Clone(entries), timestamp: l.timestamp})
	return entries, nil
}

// Timestamp is the time of the computation that produced the result.
func (l *cachedLookup) Timestamp() string {
	if l.timestamp == "" {
		return l.inner.Timestamp()
	}
	return l.timestamp
}

func (l *cachedLookup) IsFromCache() bool { return l.fromCache }

func (l *cachedLookup) Hash() string { return l.inner.Hash() }
