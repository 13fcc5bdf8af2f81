package cache

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates the requested page was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a nil entry or a page number below 1.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// PageCache maps page keys to previously fetched pages.
type PageCache struct {
	pages map[string]*PageEntry
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{
		pages: make(map[string]*PageEntry),
	}
}

// Get retrieves a page by key.
// Returns ErrCacheMiss if the page has not been stored.
func (c *PageCache) Get(key CacheKey) (*PageEntry, error) {
	entry, ok := c.pages[key.String()]
	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return entry, nil
}

// Has reports whether key is cached without touching hit/miss metrics.
func (c *PageCache) Has(key CacheKey) bool {
	_, ok := c.pages[key.String()]
	return ok
}

// Put stores entry under key. An existing page is never overwritten; Put
// reports whether the entry was stored.
func (c *PageCache) Put(key CacheKey, entry *PageEntry) (bool, error) {
	if entry == nil {
		return false, fmt.Errorf("%w: entry cannot be nil", ErrInvalidEntry)
	}
	if key.Page < 1 {
		return false, fmt.Errorf("%w: page %d", ErrInvalidEntry, key.Page)
	}

	k := key.String()
	if _, exists := c.pages[k]; exists {
		return false, nil
	}

	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now()
	}
	c.pages[k] = entry
	CachePages.Inc()

	return true, nil
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	return len(c.pages)
}
