package pagination

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bluora/isbnplus-go/pkg/client"
	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/bluora/isbnplus-go/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCursor(t *testing.T, ft *fakeTransport, q query.Query) *Cursor {
	t.Helper()
	return NewCursor(newTestFetcher(t, ft, q))
}

func TestCursor_Rewind(t *testing.T) {
	ft := newFakeTransport(25)
	c := newTestCursor(t, ft, query.New())

	rec, err := c.Rewind(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "Book 0", rec["title"])
	assert.Equal(t, 0, c.Key())
	assert.Equal(t, StatePositioned, c.State())
	assert.Equal(t, 1, ft.calls[1])
}

func TestCursor_WalkForwardFetchesEachPageOnce(t *testing.T) {
	ft := newFakeTransport(100)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)

	var rollovers []int
	lastPage := 1
	for i := 1; i <= 23; i++ {
		rec, err := c.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)

		page, _ := c.Position()
		if page != lastPage {
			rollovers = append(rollovers, c.Key())
			lastPage = page
		}
		assert.Equal(t, i, c.Key())
	}

	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, ft.calls)
	assert.Equal(t, []int{10, 20}, rollovers)
	assert.Equal(t, 3, c.Fetcher().Fetches())
}

func TestCursor_KeyMatchesPosition(t *testing.T) {
	ft := newFakeTransport(100)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)

	moves := []func(context.Context) error{
		func(ctx context.Context) error { _, err := c.Next(ctx); return err },
		func(ctx context.Context) error { _, err := c.Previous(ctx); return err },
	}
	pattern := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0}

	for _, m := range pattern {
		require.NoError(t, moves[m](ctx))
		page, record := c.Position()
		assert.Equal(t, (page-1)*PageSize+record, c.Key())
		assert.GreaterOrEqual(t, record, 0)
		assert.Less(t, record, PageSize)
	}
}

func TestCursor_PreviousAcrossPageBoundary(t *testing.T) {
	ft := newFakeTransport(100)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	rec, err := c.Page(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Book 10", rec["title"])

	rec, err = c.Previous(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Book 9", rec["title"])
	assert.Equal(t, 9, c.Key())
	assert.Equal(t, 1, ft.calls[1])

	// page 2 is cached now
	_, err = c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ft.calls[2])
}

func TestCursor_PreviousAtStart(t *testing.T) {
	ft := newFakeTransport(25)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)
	callsBefore := ft.totalCalls()

	rec, err := c.Previous(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, StateBeforeStart, c.State())
	assert.False(t, c.Valid())
	assert.Equal(t, -1, c.Key())
	assert.Zero(t, ft.calls[0])
	assert.Equal(t, callsBefore, ft.totalCalls())

	rec, err = c.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	// stays put
	rec, err = c.Previous(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, callsBefore, ft.totalCalls())

	// and steps back onto the first record
	rec, err = c.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Book 0", rec["title"])
	assert.Equal(t, 0, c.Key())
	assert.True(t, c.Valid())
}

func TestCursor_PreviousBeforeFirstFetch(t *testing.T) {
	ft := newFakeTransport(25)
	c := newTestCursor(t, ft, query.New())

	rec, err := c.Previous(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, ft.totalCalls())
}

func TestCursor_ValidAgainstTotalCount(t *testing.T) {
	ft := newFakeTransport(25)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	assert.True(t, c.Valid(), "valid before any fetch")
	assert.Zero(t, ft.totalCalls())

	_, err := c.Rewind(ctx)
	require.NoError(t, err)

	for key := 0; key < 25; key++ {
		assert.True(t, c.Valid(), "key %d", key)
		_, err := c.Next(ctx)
		require.NoError(t, err)
	}

	for key := 25; key < 35; key++ {
		assert.Equal(t, key, c.Key())
		assert.False(t, c.Valid(), "key %d", key)
		_, err := c.Next(ctx)
		require.NoError(t, err)
	}

	// page 4 lies past the reported page count
	assert.Zero(t, ft.calls[4])
	assert.Equal(t, StateExhausted, c.State())
}

func TestCursor_ValidAgainstLimit(t *testing.T) {
	ft := newFakeTransport(100)
	c := newTestCursor(t, ft, query.New().WithLimit(5))
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)

	for key := 0; key < 5; key++ {
		assert.True(t, c.Valid(), "key %d", key)
		_, err := c.Next(ctx)
		require.NoError(t, err)
	}
	assert.False(t, c.Valid())
	assert.Equal(t, 5, c.Key())
}

func TestCursor_LimitStopsPageRequests(t *testing.T) {
	ft := newFakeTransport(100)
	c := newTestCursor(t, ft, query.New().WithLimit(10))
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := c.Next(ctx)
		require.NoError(t, err)
	}

	assert.Zero(t, ft.calls[2])
	assert.Equal(t, StateExhausted, c.State())

	rec, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCursor_ExhaustedThenBack(t *testing.T) {
	ft := newFakeTransport(15)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	_, err := c.Page(ctx, 2)
	require.NoError(t, err)

	rec, err := c.Page(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, StateExhausted, c.State())
	assert.Zero(t, ft.calls[3])

	// the last page only holds five records
	rec, err = c.Previous(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 19, c.Key())
	assert.Equal(t, StatePositioned, c.State())
	assert.False(t, c.Valid())

	for i := 0; i < 5; i++ {
		rec, err = c.Previous(ctx)
		require.NoError(t, err)
	}
	require.NotNil(t, rec)
	assert.Equal(t, "Book 14", rec["title"])
	assert.True(t, c.Valid())
	assert.Equal(t, 1, ft.calls[2])
}

func TestCursor_QueryChangeForgetsTotals(t *testing.T) {
	ft := newFakeTransport(0)
	ft.totals["small"] = 5
	ft.totals["big"] = 30
	c := newTestCursor(t, ft, query.Title("small"))
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)

	c.Fetcher().SetQuery(query.Title("big"))

	rec, err := c.Page(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Book 10", rec["title"])
	assert.Equal(t, StatePositioned, c.State())
	assert.Equal(t, 1, ft.calls[2])
	assert.Equal(t, "big", ft.last.Query.Text())
	assert.Equal(t, 30, c.TotalCount())
	assert.True(t, c.Valid())

	// totals of the new query apply again
	_, err = c.Page(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, c.State())
	assert.Zero(t, ft.calls[4])
}

func TestCursor_QueryChangeRollsOver(t *testing.T) {
	ft := newFakeTransport(0)
	ft.totals["small"] = 5
	ft.totals["big"] = 30
	c := newTestCursor(t, ft, query.Title("small"))
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)
	c.Fetcher().SetQuery(query.Title("big"))

	var rec map[string]any
	for i := 0; i < 10; i++ {
		rec, err = c.Next(ctx)
		require.NoError(t, err)
	}
	require.NotNil(t, rec)
	assert.Equal(t, "Book 10", rec["title"])
	assert.Equal(t, 1, ft.calls[2])
}

func TestCursor_CurrentFetchesWhenUnstarted(t *testing.T) {
	ft := newFakeTransport(25)
	c := newTestCursor(t, ft, query.New())

	rec, err := c.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Book 0", rec["title"])
	assert.Equal(t, 1, ft.calls[1])

	_, err = c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ft.calls[1])
}

func TestCursor_NextWhenUnstarted(t *testing.T) {
	ft := newFakeTransport(25)
	c := newTestCursor(t, ft, query.New())

	rec, err := c.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Book 1", rec["title"])
	assert.Equal(t, 1, ft.calls[1])
}

func TestCursor_PageJump(t *testing.T) {
	ft := newFakeTransport(100)
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	rec, err := c.Page(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Book 60", rec["title"])
	assert.Equal(t, 60, c.Key())
	assert.Equal(t, 1, ft.calls[7])
	assert.Zero(t, ft.calls[1])

	rec, err = c.Page(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, StateBeforeStart, c.State())
	assert.Zero(t, ft.calls[0])
}

func TestCursor_FailedFetchInvalidates(t *testing.T) {
	ft := newFakeTransport(100)
	ft.responses[2] = &client.Response{StatusCode: http.StatusInternalServerError, Body: []byte("oops")}
	c := newTestCursor(t, ft, query.New())
	ctx := context.Background()

	_, err := c.Rewind(ctx)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err = c.Next(ctx)
		require.NoError(t, err)
	}

	rec, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, c.Valid())
	assert.Equal(t, http.StatusInternalServerError, c.Fetcher().HTTPCode())
	assert.Equal(t, "oops", c.Fetcher().RawError())
}

func TestCursor_ConfigurationError(t *testing.T) {
	ft := newFakeTransport(25)
	f, err := NewFetcher(FetcherConfig{
		Transport:   ft,
		Credentials: config.Credentials{AppID: "id"},
		Query:       query.New(),
	})
	require.NoError(t, err)
	c := NewCursor(f)

	_, err = c.Rewind(context.Background())
	assert.True(t, errors.Is(err, config.ErrMissingConfig))
	assert.Equal(t, StateUnstarted, c.State())

	_, err = c.Current(context.Background())
	assert.Error(t, err)
	assert.Zero(t, ft.totalCalls())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unstarted", StateUnstarted.String())
	assert.Equal(t, "positioned", StatePositioned.String())
	assert.Equal(t, "before_start", StateBeforeStart.String())
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "unknown", State(42).String())
}
