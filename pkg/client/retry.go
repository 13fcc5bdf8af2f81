package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/bluora/isbnplus-go/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Name: "isbnplus_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Name: "isbnplus_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns a configuration that performs a single attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// attemptFunc performs one attempt and reports how it failed.
// An empty class means the attempt succeeded or must not be retried.
type attemptFunc func() (ErrorClass, error)

// retryWithBackoff executes fn with exponential backoff and jitter.
// It returns the error of the last attempt, nil when that attempt produced a
// response (even a retryable 5xx one), or ErrContextCancelled when ctx ends
// during a backoff.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn attemptFunc) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	backoff := config.InitialBackoff
	var (
		lastErr    error
		errorClass ErrorClass
	)

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		errorClass, lastErr = fn()
		if !shouldRetry(errorClass) {
			if attempt > 1 && lastErr == nil {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return lastErr
		}

		// If this was the last attempt, don't wait
		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	if config.MaxAttempts > 1 {
		retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
		log.Warn().
			Str("error_class", string(errorClass)).
			Int("max_attempts", config.MaxAttempts).
			Msg("Retry attempts exhausted")
	}

	if lastErr != nil && config.MaxAttempts > 1 {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
	}
	return lastErr
}
