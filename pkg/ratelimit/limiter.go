// Package ratelimit implements client-side request pacing for the ISBN Plus
// search service. The service's application plans cap requests per second;
// pacing locally keeps a fast cursor walk from being rejected.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bluora/isbnplus-go/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	rateLimitWaitSeconds = metrics.Factory().NewHistogram(prometheus.HistogramOpts{
		Name:    "isbnplus_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a request token",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// throttleLogThreshold is the wait above which a pacing delay is logged.
const throttleLogThreshold = 100 * time.Millisecond

// Limiter paces outgoing requests with a token bucket.
// A nil *Limiter or one created with a non-positive rate never blocks.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a limiter allowing rps requests per second with a burst of
// one request (rounded up for fractional rates above one).
func NewLimiter(rps float64, logger zerolog.Logger) *Limiter {
	if rps <= 0 {
		return &Limiter{logger: logger}
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Enabled reports whether requests are paced at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limiter != nil
}

// Limit returns the configured requests per second, or 0 when disabled.
func (l *Limiter) Limit() float64 {
	if !l.Enabled() {
		return 0
	}
	return float64(l.limiter.Limit())
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	waited := time.Since(start)
	rateLimitWaitSeconds.Observe(waited.Seconds())
	if waited > throttleLogThreshold {
		l.logger.Debug().
			Dur("wait_duration", waited).
			Float64("limit_rps", l.Limit()).
			Msg("Request throttled by rate limiter")
	}

	return nil
}
