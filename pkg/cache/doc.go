// Package cache provides the session-scoped page cache used by the ISBN Plus client.
//
// The cache is append-only: once a page is stored under a key it is never
// evicted or replaced for the lifetime of the cache. Nothing is persisted
// across runs.
//
// # Basic Usage
//
//	pages := cache.NewPageCache()
//
//	key := cache.CacheKey{
//		Fingerprint: q.Fingerprint(),
//		Page:        2,
//	}
//
//	entry, err := pages.Get(key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch the page, then
//		pages.Put(key, entry)
//	}
//
// # Keys
//
// Pages are keyed by the query fingerprint and the page number, so changing
// the query never returns pages fetched for a previous one. A key with an
// empty fingerprint reproduces a cache keyed by page number alone.
//
// # Concurrency
//
// A PageCache belongs to one traversal at a time and performs no locking.
// Concurrent traversals should each use their own cache.
//
// # Metrics
//
//   - isbnplus_page_cache_hits_total - Cache hits
//   - isbnplus_page_cache_misses_total - Cache misses
//   - isbnplus_page_cache_pages - Pages held
package cache
