package cache

import (
	"github.com/bluora/isbnplus-go/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CacheHits tracks pages served without a fetch.
	CacheHits = metrics.Factory().NewCounter(
		prometheus.CounterOpts{
			Name: "isbnplus_page_cache_hits_total",
			Help: "Total number of result pages served from the session cache",
		},
	)

	// CacheMisses tracks lookups that required a fetch.
	CacheMisses = metrics.Factory().NewCounter(
		prometheus.CounterOpts{
			Name: "isbnplus_page_cache_misses_total",
			Help: "Total number of result page cache misses",
		},
	)

	// CachePages tracks pages held across all live caches.
	CachePages = metrics.Factory().NewGauge(
		prometheus.GaugeOpts{
			Name: "isbnplus_page_cache_pages",
			Help: "Current number of result pages held in session caches",
		},
	)
)
