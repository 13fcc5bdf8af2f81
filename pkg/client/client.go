// Package client provides the HTTP transport for the ISBN Plus search service:
// request construction, TLS policy, pacing, an optional circuit breaker,
// optional retries and transport error classification.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/bluora/isbnplus-go/pkg/logging"
	"github.com/bluora/isbnplus-go/pkg/metrics"
	"github.com/bluora/isbnplus-go/pkg/query"
	"github.com/bluora/isbnplus-go/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Prometheus metrics for search requests.
var (
	requestsTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Name: "isbnplus_requests_total",
		Help: "Total search requests by status",
	}, []string{"status"})

	requestDuration = metrics.Factory().NewHistogram(prometheus.HistogramOpts{
		Name:    "isbnplus_request_duration_seconds",
		Help:    "Search request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Name: "isbnplus_errors_total",
		Help: "Total search errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassCircuitOpen represents requests rejected by the circuit breaker.
	ErrorClassCircuitOpen ErrorClass = "circuit_open"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "isbnplus-go/0.1.0"

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 8 << 20

// Config holds the transport configuration.
type Config struct {
	// Timeout bounds a single attempt. Zero means no timeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// RateLimit caps requests per second (0 = unlimited).
	RateLimit float64

	// Retry controls retries of transport and 5xx failures.
	// The default performs a single attempt.
	Retry RetryConfig

	// CircuitBreaker enables failing fast after consecutive failures.
	CircuitBreaker bool

	// UserAgent header value.
	UserAgent string
}

// DefaultConfig returns a configuration with a 30s timeout, TLS verification,
// no pacing, no retries and no circuit breaker.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
		UserAgent: DefaultUserAgent,
	}
}

// ConfigFrom builds a transport configuration from loaded settings.
func ConfigFrom(t config.TransportConfig) Config {
	cfg := DefaultConfig()
	cfg.Timeout = t.Timeout
	cfg.InsecureSkipVerify = t.InsecureSkipVerify
	cfg.RateLimit = t.RateLimit
	cfg.Retry.MaxAttempts = t.MaxRetries + 1
	cfg.CircuitBreaker = t.CircuitBreaker
	return cfg
}

// Request is one page request.
type Request struct {
	Credentials config.Credentials
	Query       query.Query
	Page        int
}

// URL renders the request URL: the endpoint with the search parameters and
// the application credentials.
func (r Request) URL() (string, error) {
	u, err := url.Parse(r.Credentials.EndpointURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute URL", r.Credentials.EndpointURL)
	}

	params := u.Query()
	for k, v := range r.Query.Params(r.Page) {
		params[k] = v
	}
	params.Set("app_id", r.Credentials.AppID)
	params.Set("app_key", r.Credentials.AppKey)
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// Response is an HTTP response that was received in full.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}

// Success reports whether the status is below 300.
func (r *Response) Success() bool {
	return r.StatusCode < 300
}

// Client performs page requests against the search endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	breaker    *gobreaker.CircuitBreaker
	config     Config
	logger     zerolog.Logger
}

// New creates a new search transport.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must be >= 0 (got %v)", cfg.RateLimit)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	logger := logging.NewLogger("isbnplus-client")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		// #nosec G402 -- opt-in via transport.insecure_skip_verify
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: ratelimit.NewLimiter(cfg.RateLimit, logger),
		config:  cfg,
		logger:  logger,
	}

	if cfg.CircuitBreaker {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "isbnplus",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		})
	}

	if cfg.InsecureSkipVerify {
		logger.Warn().Msg("TLS certificate verification is disabled")
	}

	return c, nil
}

// Fetch performs one page request. A non-nil error is always a
// *TransportError: no HTTP response was obtained. Any received response,
// whatever its status, is returned with a nil error.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	target, err := req.URL()
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &TransportError{
			Code:       CodeMalformedURL,
			ErrorClass: ErrorClassNetwork,
			Message:    "URL using bad/illegal format",
			Err:        err,
		}
	}

	c.logger.Debug().
		Str("mode", string(req.Query.Mode())).
		Str("order", req.Query.Order()).
		Int("page", req.Page).
		Msg("Executing search request")

	var resp *Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() (ErrorClass, error) {
		r, attemptErr := c.attempt(ctx, target)
		if attemptErr != nil {
			te := newTransportError(attemptErr)
			errorsTotal.WithLabelValues(string(te.ErrorClass)).Inc()
			requestsTotal.WithLabelValues("transport_error").Inc()
			c.logger.Warn().
				Err(attemptErr).
				Int("page", req.Page).
				Int("code", te.Code).
				Msg("Search request failed")
			if te.ErrorClass == ErrorClassCircuitOpen {
				return "", attemptErr
			}
			return ErrorClassNetwork, attemptErr
		}

		resp = r
		requestsTotal.WithLabelValues(strconv.Itoa(r.StatusCode)).Inc()

		class := classifyStatus(r.StatusCode)
		if class != "" {
			errorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Int("page", req.Page).
				Int("status", r.StatusCode).
				Str("error_class", string(class)).
				Msg("Search request rejected")
		}
		return class, nil
	})

	if retryErr != nil {
		return nil, newTransportError(retryErr)
	}

	return resp, nil
}

// attempt sends one request through the limiter and, when enabled, the breaker.
func (c *Client) attempt(ctx context.Context, target string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.breaker == nil {
		return c.do(ctx, target)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		r, err := c.do(ctx, target)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 {
			// count as a failure but keep the response
			return r, &statusError{resp: r}
		}
		return r, nil
	})

	var se *statusError
	if errors.As(err, &se) {
		return se.resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*Response), nil
}

// do executes the HTTP request and reads the full body.
func (c *Client) do(ctx context.Context, target string) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", redactError(err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, redactError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	elapsed := time.Since(start)
	requestDuration.Observe(elapsed.Seconds())

	return &Response{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
		Duration:    elapsed,
	}, nil
}

// redactedValue replaces secret query parameters in URLs that leave the client.
const redactedValue = "REDACTED"

// redactError masks the application key in the URL carried by a *url.Error.
// net/http reports the full request URL, credentials included.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

// redactURL masks the app_key parameter of raw.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	params := u.Query()
	if params.Get("app_key") == "" {
		return raw
	}
	params.Set("app_key", redactedValue)
	u.RawQuery = params.Encode()
	return u.String()
}

// statusError carries a 5xx response through the circuit breaker.
type statusError struct {
	resp *Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.resp.StatusCode)
}

// classifyStatus categorizes an HTTP status for observability and retries.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}
