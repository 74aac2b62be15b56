package source

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// BodyCache stores raw feed bodies keyed by URL.
type BodyCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	Invalidate(ctx context.Context) error
}

// CachedFetcher wraps a Fetcher with a shared body cache. Cache failures are
// logged and fall through to the inner fetcher.
type CachedFetcher struct {
	inner   Fetcher
	cache   BodyCache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, cache BodyCache, logger *slog.Logger, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok, err := c.cache.Get(ctx, url)
	switch {
	case err != nil:
		c.logger.Warn("source cache read failed", "url", url, "error", err)
		c.metrics.SourceCache.WithLabelValues("error").Inc()
	case ok:
		c.metrics.SourceCache.WithLabelValues("hit").Inc()
		return body, nil
	default:
		c.metrics.SourceCache.WithLabelValues("miss").Inc()
	}

	body, err = c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, url, body); err != nil {
		c.logger.Warn("source cache write failed", "url", url, "error", err)
	}
	return body, nil
}

// Invalidate drops every cached body so the next fetch goes to the network.
func (c *CachedFetcher) Invalidate(ctx context.Context) error {
	return c.cache.Invalidate(ctx)
}

// MemoryCache is a thread-safe LRU with per-entry expiry.
type MemoryCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// NewMemoryCache creates an in-process cache holding at most maxEntries bodies
// for ttl each. A nil clock uses real time.
func NewMemoryCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false, nil
	}
	c.moveToFront(e)
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = body
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: body, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.head = nil
	c.tail = nil
	return nil
}

// Len reports the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *MemoryCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *MemoryCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *MemoryCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

// NoCache disables caching; every fetch goes to the network.
type NoCache struct{}

func (NoCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoCache) Set(context.Context, string, []byte) error         { return nil }
func (NoCache) Invalidate(context.Context) error                  { return nil }
