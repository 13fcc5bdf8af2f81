package pagination

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bluora/isbnplus-go/internal/testutil"
	"github.com/bluora/isbnplus-go/pkg/cache"
	"github.com/bluora/isbnplus-go/pkg/client"
	"github.com/bluora/isbnplus-go/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_AllRecords(t *testing.T) {
	ft := newFakeTransport(123)
	c := newTestCursor(t, ft, query.New())

	records, err := Collect(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, records, 123)
	for i, rec := range records {
		assert.Equal(t, testutil.Book(i)["title"], rec["title"])
	}
	assert.Equal(t, 13, c.Fetcher().Fetches())
	assert.Zero(t, ft.calls[14])
}

func TestCollect_Limit(t *testing.T) {
	ft := newFakeTransport(123)
	c := newTestCursor(t, ft, query.New().WithLimit(25))

	records, err := Collect(context.Background(), c)
	require.NoError(t, err)

	assert.Len(t, records, 25)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, ft.calls)
}

func TestCollect_ZeroLimit(t *testing.T) {
	ft := newFakeTransport(123)
	c := newTestCursor(t, ft, query.New().WithLimit(0))

	records, err := Collect(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollect_Empty(t *testing.T) {
	ft := newFakeTransport(0)
	c := newTestCursor(t, ft, query.New())

	records, err := Collect(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, ft.totalCalls())
}

func TestCollect_FailureReturnsPartial(t *testing.T) {
	ft := newFakeTransport(50)
	ft.responses[3] = &client.Response{StatusCode: http.StatusTooManyRequests, Body: []byte("slow down")}
	c := newTestCursor(t, ft, query.New())

	records, err := Collect(context.Background(), c)
	require.Error(t, err)
	assert.Len(t, records, 20)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Page)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.State.HTTPStatus)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}

func TestEach_StopsOnVisitorError(t *testing.T) {
	ft := newFakeTransport(50)
	c := newTestCursor(t, ft, query.New())
	stop := errors.New("stop")

	var keys []int
	err := Each(context.Background(), c, func(key int, _ cache.Record) error {
		keys = append(keys, key)
		if key == 11 {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 12, len(keys))
	assert.Zero(t, ft.calls[3])
}

func TestEach_ContextCancelled(t *testing.T) {
	ft := newFakeTransport(50)
	c := newTestCursor(t, ft, query.New())

	ctx, cancel := context.WithCancel(context.Background())
	err := Each(ctx, c, func(key int, _ cache.Record) error {
		if key == 4 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ft.calls[2])
}

func TestCollect_OverHTTP(t *testing.T) {
	for _, useXML := range []bool{false, true} {
		name := "json"
		if useXML {
			name = "xml"
		}
		t.Run(name, func(t *testing.T) {
			mock := testutil.NewMockISBNPlus(34)
			defer mock.Close()
			mock.XML = useXML

			transport, err := client.New(client.DefaultConfig())
			require.NoError(t, err)

			creds := testCredentials()
			creds.EndpointURL = mock.URL()

			f, err := NewFetcher(FetcherConfig{
				Transport:   transport,
				Credentials: creds,
				Query:       query.Category("fantasy").WithOrder("title"),
			})
			require.NoError(t, err)

			records, err := Collect(context.Background(), NewCursor(f))
			require.NoError(t, err)

			require.Len(t, records, 34)
			assert.Equal(t, "Book 33", records[33]["title"])
			assert.Equal(t, []int{1, 2, 3, 4}, mock.RequestedPages())
			assert.Equal(t, "fantasy", mock.GetLastQuery().Get("c"))
			assert.Equal(t, "title", mock.GetLastQuery().Get("order"))

			// a second walk is served from the cache
			_, err = Collect(context.Background(), NewCursor(f))
			require.NoError(t, err)
			assert.Equal(t, 4, mock.GetRequestCount())
		})
	}
}

func TestCollect_OverHTTPConnectionRefused(t *testing.T) {
	mock := testutil.NewMockISBNPlus(10)
	endpoint := mock.URL()
	mock.Close()

	transport, err := client.New(client.DefaultConfig())
	require.NoError(t, err)

	creds := testCredentials()
	creds.EndpointURL = endpoint
	creds.AppKey = "SUPERSECRETKEY"

	f, err := NewFetcher(FetcherConfig{Transport: transport, Credentials: creds, Query: query.New()})
	require.NoError(t, err)

	_, err = Collect(context.Background(), NewCursor(f))
	require.Error(t, err)

	assert.Equal(t, -client.CodeConnect, f.Code())
	assert.NotEmpty(t, f.RawError())
	assert.Equal(t, KindTransport, f.ErrorState().Kind)

	assert.NotContains(t, f.RawError(), "SUPERSECRETKEY")
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
	assert.NotContains(t, f.Err(1).Error(), "SUPERSECRETKEY")
}

// newHTTPFetcher returns a fetcher talking to mock through a real transport.
func newHTTPFetcher(t *testing.T, mock *testutil.MockISBNPlus) *Fetcher {
	t.Helper()
	transport, err := client.New(client.DefaultConfig())
	require.NoError(t, err)

	creds := testCredentials()
	creds.EndpointURL = mock.URL()

	f, err := NewFetcher(FetcherConfig{Transport: transport, Credentials: creds, Query: query.New()})
	require.NoError(t, err)
	return f
}

func TestCollect_OverHTTPNotModified(t *testing.T) {
	mock := testutil.NewMockISBNPlus(25)
	defer mock.Close()
	mock.SetPageResponse(1, testutil.NewNotModifiedResponse())

	f := newHTTPFetcher(t, mock)

	records, err := Collect(context.Background(), NewCursor(f))
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t, http.StatusNotModified, f.HTTPCode())
	assert.Equal(t, KindRemote, f.ErrorState().Kind)
	assert.False(t, f.Failed())
	assert.Zero(t, f.Cache().Len())
}

func TestCollect_OverHTTPUndecodableThenRecovered(t *testing.T) {
	mock := testutil.NewMockISBNPlus(25)
	defer mock.Close()
	mock.SetPageResponse(2, testutil.NewMalformedResponse())

	f := newHTTPFetcher(t, mock)

	records, err := Collect(context.Background(), NewCursor(f))
	require.Error(t, err)
	assert.Len(t, records, 10)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 2, fetchErr.Page)
	assert.Equal(t, KindDecode, fetchErr.State.Kind)
	assert.Contains(t, f.RawError(), "temporarily unavailable")
	assert.Zero(t, f.HTTPCode())

	mock.ClearPageResponse(2)

	records, err = Collect(context.Background(), NewCursor(f))
	require.NoError(t, err)
	assert.Len(t, records, 25)
	assert.Equal(t, 1, mock.GetPageRequests(1))
	assert.Equal(t, 2, mock.GetPageRequests(2))
}
