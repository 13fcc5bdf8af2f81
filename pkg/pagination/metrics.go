package pagination

import (
	"github.com/bluora/isbnplus-go/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pageFetchesTotal = metrics.Factory().NewCounter(prometheus.CounterOpts{
		Name: "isbnplus_page_fetches_total",
		Help: "Total number of result pages fetched and decoded",
	})

	pageFailuresTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Name: "isbnplus_page_fetch_failures_total",
		Help: "Total number of failed page fetches by kind",
	}, []string{"kind"})
)
