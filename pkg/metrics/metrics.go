// Package metrics provides the Prometheus registerer shared by the ISBN Plus client.
// Metrics are defined in their respective packages (client, cache, ratelimit,
// pagination) and registered against Registry to avoid circular dependencies.
//
// This package also serves as the reference for every exported metric.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the Prometheus registerer used by all client packages.
var Registry = prometheus.DefaultRegisterer

// Factory creates metrics registered against Registry.
func Factory() promauto.Factory {
	return promauto.With(Registry)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - isbnplus_requests_total{status} (Counter): Requests by HTTP status or "transport_error"
//   - isbnplus_request_duration_seconds (Histogram): Page request duration
//   - isbnplus_errors_total{class} (Counter): Errors by class (client, server, network, circuit_open)
//   - isbnplus_retries_total{error_class} (Counter): Retry attempts by error class
//   - isbnplus_retry_exhausted_total{error_class} (Counter): Requests that ran out of attempts
//
// Cache Metrics (pkg/cache):
//   - isbnplus_page_cache_hits_total (Counter): Pages served from the session cache
//   - isbnplus_page_cache_misses_total (Counter): Pages that required a fetch
//   - isbnplus_page_cache_pages (Gauge): Pages held across live caches
//
// Rate Limit Metrics (pkg/ratelimit):
//   - isbnplus_rate_limit_wait_seconds (Histogram): Time spent waiting for a request token
//
// Pagination Metrics (pkg/pagination):
//   - isbnplus_page_fetches_total (Counter): Pages fetched and decoded
//   - isbnplus_page_fetch_failures_total{kind} (Counter): Failed page fetches by kind (transport, remote, decode)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(isbnplus_page_cache_hits_total[5m]) /
//   (rate(isbnplus_page_cache_hits_total[5m]) + rate(isbnplus_page_cache_misses_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(isbnplus_request_duration_seconds_bucket[5m]))
