package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluora/isbnplus-go/pkg/cache"
	"github.com/bluora/isbnplus-go/pkg/client"
	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/bluora/isbnplus-go/pkg/decode"
	"github.com/bluora/isbnplus-go/pkg/logging"
	"github.com/bluora/isbnplus-go/pkg/query"
	"github.com/rs/zerolog"
)

// Transport performs one page request. *client.Client implements it.
type Transport interface {
	Fetch(ctx context.Context, req client.Request) (*client.Response, error)
}

// FetcherConfig holds the collaborators of a Fetcher.
type FetcherConfig struct {
	// Transport issues requests (required).
	Transport Transport

	// Credentials used for every request. Checked at fetch time.
	Credentials config.Credentials

	// Query selects the result set.
	Query query.Query

	// Cache stores fetched pages. A new cache is created when nil.
	Cache *cache.PageCache
}

// Fetcher returns result pages from its cache or fetches them, recording the
// outcome of every fetch in an ErrorState.
//
// A Fetcher is meant for one caller at a time; use one per traversal.
type Fetcher struct {
	transport Transport
	cache     *cache.PageCache
	creds     config.Credentials
	query     query.Query

	errState ErrorState
	current  *cache.PageEntry
	fetches  int

	logger zerolog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewPageCache()
	}

	return &Fetcher{
		transport: cfg.Transport,
		cache:     cfg.Cache,
		creds:     cfg.Credentials,
		query:     cfg.Query,
		logger:    logging.NewLogger("isbnplus-fetcher"),
	}, nil
}

// FetchPage returns page n. A cached page is returned as is. Otherwise the
// page is requested and, when it decodes, cached.
//
// The only error returned is a *config.ConfigurationError for incomplete
// credentials, before any request is made. Fetch failures yield a nil entry
// and are reported through ErrorState. Pages below 1 yield nil without a request.
func (f *Fetcher) FetchPage(ctx context.Context, n int) (*cache.PageEntry, error) {
	if err := f.creds.Validate(); err != nil {
		f.logger.Error().Err(err).Int("page", n).Msg("Cannot fetch page")
		return nil, err
	}
	if n < 1 {
		f.current = nil
		return nil, nil
	}

	key := cache.CacheKey{Fingerprint: f.query.Fingerprint(), Page: n}
	if entry, err := f.cache.Get(key); err == nil {
		f.logger.Debug().Str("key", key.String()).Msg("Page cache hit")
		f.current = entry
		return entry, nil
	}

	f.errState.Reset()
	f.current = nil

	start := time.Now()
	resp, err := f.transport.Fetch(ctx, client.Request{
		Credentials: f.creds,
		Query:       f.query,
		Page:        n,
	})
	if err != nil {
		f.recordTransportError(n, err)
		return nil, nil
	}

	if !resp.Success() {
		f.errState = ErrorState{
			HTTPStatus: resp.StatusCode,
			RawError:   string(resp.Body),
			Kind:       KindRemote,
		}
		pageFailuresTotal.WithLabelValues(string(KindRemote)).Inc()
		f.logger.Warn().
			Int("page", n).
			Int("status", resp.StatusCode).
			Msg("Page request rejected")
		return nil, nil
	}

	entry, err := decode.Page(resp.Body, resp.ContentType)
	if err != nil {
		f.errState = ErrorState{
			RawError: string(resp.Body),
			Kind:     KindDecode,
		}
		pageFailuresTotal.WithLabelValues(string(KindDecode)).Inc()
		f.logger.Warn().
			Err(err).
			Int("page", n).
			Str("content_type", resp.ContentType).
			Msg("Page could not be decoded")
		return nil, nil
	}

	f.errState.HTTPStatus = resp.StatusCode
	if _, err := f.cache.Put(key, entry); err != nil {
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Page not cached")
	}
	f.current = entry
	f.fetches++
	pageFetchesTotal.Inc()

	f.logger.Info().
		Int("page", n).
		Int("records", entry.Len()).
		Int("total_count", entry.TotalCount).
		Int("total_pages", entry.TotalPages).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return entry, nil
}

func (f *Fetcher) recordTransportError(page int, err error) {
	var te *client.TransportError
	if !errors.As(err, &te) {
		te = &client.TransportError{Code: client.CodeReceive, Message: err.Error()}
	}

	f.errState = ErrorState{
		Code:     -te.Code,
		RawError: te.Description(),
		Kind:     KindTransport,
	}
	pageFailuresTotal.WithLabelValues(string(KindTransport)).Inc()

	f.logger.Warn().
		Err(err).
		Int("page", page).
		Int("code", te.Code).
		Msg("Page request failed")
}

// Result returns the records of the page most recently returned by FetchPage,
// or nil when that fetch failed.
func (f *Fetcher) Result() []cache.Record {
	if f.current == nil {
		return nil
	}
	return f.current.Records
}

// Entry returns the page most recently returned by FetchPage.
func (f *Fetcher) Entry() *cache.PageEntry {
	return f.current
}

// First returns the first record of the current page, or nil.
func (f *Fetcher) First() cache.Record {
	return f.current.At(0)
}

// Code returns the negated transport error code of the last fetch, or 0.
func (f *Fetcher) Code() int {
	return f.errState.Code
}

// HTTPCode returns the status of the last received response, or 0.
func (f *Fetcher) HTTPCode() int {
	return f.errState.HTTPStatus
}

// RawError returns the raw error text of the last fetch.
func (f *Fetcher) RawError() string {
	return f.errState.RawError
}

// Failed reports whether the last fetch failed.
func (f *Fetcher) Failed() bool {
	return f.errState.Failed()
}

// ErrorState returns a copy of the last fetch outcome.
func (f *Fetcher) ErrorState() ErrorState {
	return f.errState
}

// Err returns the last fetch failure as a *FetchError, or nil.
func (f *Fetcher) Err(page int) error {
	if !f.errState.Failed() {
		return nil
	}
	return &FetchError{Page: page, State: f.errState}
}

// Fetches returns how many pages were fetched and decoded. Cache hits are not counted.
func (f *Fetcher) Fetches() int {
	return f.fetches
}

// Query returns the active query.
func (f *Fetcher) Query() query.Query {
	return f.query
}

// SetQuery replaces the active query. Pages cached for other queries are kept
// but no longer returned.
func (f *Fetcher) SetQuery(q query.Query) {
	f.query = q
}

// Credentials returns the configured credentials.
func (f *Fetcher) Credentials() config.Credentials {
	return f.creds
}

// SetCredentials merges c into the configured credentials. Empty values do
// not clear existing ones.
func (f *Fetcher) SetCredentials(c config.Credentials) {
	f.creds.Merge(c)
}

// Cache returns the page cache.
func (f *Fetcher) Cache() *cache.PageCache {
	return f.cache
}
