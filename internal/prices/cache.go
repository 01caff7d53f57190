package prices

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Generic in-memory cache with type safety
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*cacheItem[V]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// NewCache starts a janitor that drops expired entries every sweep interval.
// Call Close to stop it.
func NewCache[K comparable, V any](ttl, sweep time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	if sweep <= 0 {
		sweep = time.Minute
	}

	go c.cleanup(sweep)

	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*cacheItem[V])
}

func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) cleanup(sweep time.Duration) {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiration) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

const fullTableKey = "*"

// CachedSource memoizes another Source for a TTL. Concurrent misses for the same key
// share one underlying load.
type CachedSource struct {
	src    Source
	tables *Cache[string, *Table]
	group  singleflight.Group
}

func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	sweep := ttl
	if sweep > 5*time.Minute {
		sweep = 5 * time.Minute
	}
	return &CachedSource{
		src:    src,
		tables: NewCache[string, *Table](ttl, sweep),
	}
}

func (s *CachedSource) Load(ctx context.Context) (*Table, error) {
	return s.get(fullTableKey, func() (*Table, error) { return s.src.Load(ctx) })
}

// LoadSymbols delegates to the wrapped source's SymbolLoader when it has one, so
// symbol-scoped backends keep fetching only what is asked for.
func (s *CachedSource) LoadSymbols(ctx context.Context, symbols []string) (*Table, error) {
	sl, ok := s.src.(SymbolLoader)
	if !ok {
		t, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		return t.Subset(symbols), nil
	}
	return s.get(symbolsKey(symbols), func() (*Table, error) { return sl.LoadSymbols(ctx, symbols) })
}

// Invalidate forgets every cached table.
func (s *CachedSource) Invalidate() {
	s.tables.Purge()
}

func (s *CachedSource) Close() {
	s.tables.Close()
}

func (s *CachedSource) get(key string, load func() (*Table, error)) (*Table, error) {
	if t, ok := s.tables.Get(key); ok {
		return t, nil
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if t, ok := s.tables.Get(key); ok {
			return t, nil
		}
		t, err := load()
		if err != nil {
			return nil, err
		}
		s.tables.Set(key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

func symbolsKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	key := strings.Join(sorted, ",")
	return fmt.Sprintf("%x", md5.Sum([]byte(key)))
}
