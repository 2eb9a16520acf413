package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/pulse/internal/log"
)

const (
	// DefaultCacheTTL bounds how long an unchanged file is served from memory.
	DefaultCacheTTL = 10 * time.Minute
	// DefaultCacheCleanup is the interval for evicting expired entries.
	DefaultCacheCleanup = 30 * time.Minute
)

// Cache is a read-through cache of parsed scenarios. Entries are keyed by
// absolute path, modification time and size, so an edited file is always
// parsed again.
type Cache struct {
	items  *gocache.Cache
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache whose entries expire after ttl.
// A non-positive ttl selects DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		items: gocache.New(ttl, DefaultCacheCleanup),
		ttl:   ttl,
	}
}

// Load returns the parsed scenario at path, reading the file only when it
// changed since the last call or the entry expired.
func (c *Cache) Load(path string) (*Scenario, error) {
	key, err := cacheKey(path)
	if err != nil {
		return nil, err
	}

	if v, found := c.items.Get(key); found {
		if s, ok := v.(*Scenario); ok {
			c.hits.Add(1)
			log.Debug(log.CatScenario, "scenario cache hit", "path", path)
			return s, nil
		}
		log.Error(log.CatScenario, "wrong type in scenario cache", "key", key)
	}

	c.misses.Add(1)
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.items.Set(key, s, c.ttl)
	return s, nil
}

// LoadAll loads every path through the cache, stopping at the first error.
func (c *Cache) LoadAll(paths []string) ([]*Scenario, error) {
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := c.Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Hits returns how many loads were served from memory.
func (c *Cache) Hits() uint64 { return c.hits.Load() }

// Misses returns how many loads read the file.
func (c *Cache) Misses() uint64 { return c.misses.Load() }

// Len returns the number of cached entries, including expired ones not yet
// evicted.
func (c *Cache) Len() int { return c.items.ItemCount() }

// Flush drops every entry.
func (c *Cache) Flush() {
	c.items.Flush()
}

func cacheKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving scenario path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("reading scenario: %w", err)
	}
	return fmt.Sprintf("%s|%d|%d", abs, info.ModTime().UnixNano(), info.Size()), nil
}
