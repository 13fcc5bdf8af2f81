package pagination

import (
	"context"

	"github.com/bluora/isbnplus-go/pkg/cache"
	"github.com/bluora/isbnplus-go/pkg/logging"
	"github.com/rs/zerolog"
)

// PageSize is the fixed number of records per page served by the search service.
const PageSize = 10

// State is the cursor's position state.
type State int

const (
	// StateUnstarted means no page has been requested yet.
	StateUnstarted State = iota

	// StatePositioned means the current page was requested.
	StatePositioned

	// StateBeforeStart means the cursor stepped back past the first record.
	StateBeforeStart

	// StateExhausted means the cursor moved past the last page or the limit.
	StateExhausted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StatePositioned:
		return "positioned"
	case StateBeforeStart:
		return "before_start"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Cursor walks individual records across pages. Its position is a page
// number and a record index within that page; every page change requests the
// new page through the Fetcher.
//
// Movement methods return the record at the new position, or nil. Their
// error is non-nil only for incomplete credentials.
type Cursor struct {
	fetcher *Fetcher
	page    int
	record  int
	state   State
	entry   *cache.PageEntry

	// totals from the last page that decoded, and the query they belong to
	totalCount int
	totalPages int
	totalsFor  string
	haveTotals bool

	logger zerolog.Logger
}

// NewCursor creates an unstarted cursor at the first record.
func NewCursor(f *Fetcher) *Cursor {
	return &Cursor{
		fetcher: f,
		page:    1,
		state:   StateUnstarted,
		logger:  logging.NewLogger("isbnplus-cursor"),
	}
}

// Fetcher returns the fetcher the cursor reads through.
func (c *Cursor) Fetcher() *Fetcher {
	return c.fetcher
}

// State returns the position state.
func (c *Cursor) State() State {
	return c.state
}

// Position returns the page number and the record index within it.
func (c *Cursor) Position() (page, record int) {
	return c.page, c.record
}

// Key returns the absolute 0-based record index.
func (c *Cursor) Key() int {
	return (c.page-1)*PageSize + c.record
}

// TotalCount returns the record total reported by the last decoded page.
func (c *Cursor) TotalCount() int {
	return c.totalCount
}

// Rewind moves to the first record and requests page 1.
func (c *Cursor) Rewind(ctx context.Context) (cache.Record, error) {
	c.page, c.record = 1, 0
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.entry.At(c.record), nil
}

// Next advances one record, requesting the next page on rollover.
func (c *Cursor) Next(ctx context.Context) (cache.Record, error) {
	if c.state == StateBeforeStart {
		c.page, c.record = 0, PageSize-1
	}

	c.record++
	if c.record == PageSize {
		c.page++
		c.record = 0
		c.logger.Debug().Int("page", c.page).Int("key", c.Key()).Msg("Cursor rolled over to next page")
		if err := c.enter(ctx); err != nil {
			return nil, err
		}
	}

	return c.Current(ctx)
}

// Previous steps back one record, requesting the previous page on rollback.
// Stepping back from the first record moves before the start: nothing is
// requested and nil is returned.
func (c *Cursor) Previous(ctx context.Context) (cache.Record, error) {
	if c.state == StateBeforeStart {
		return nil, nil
	}

	c.record--
	if c.record < 0 {
		c.page--
		c.record = PageSize - 1
		if c.page < 1 {
			c.beforeStart()
			return nil, nil
		}
		c.logger.Debug().Int("page", c.page).Int("key", c.Key()).Msg("Cursor rolled back to previous page")
		if err := c.enter(ctx); err != nil {
			return nil, err
		}
	}

	return c.Current(ctx)
}

// Page jumps to the first record of page n and requests it. Pages below 1
// move before the start.
func (c *Cursor) Page(ctx context.Context, n int) (cache.Record, error) {
	if n < 1 {
		c.beforeStart()
		return nil, nil
	}

	c.page, c.record = n, 0
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	return c.Current(ctx)
}

// Current returns the record at the cursor. An unstarted cursor requests its
// page first.
func (c *Cursor) Current(ctx context.Context) (cache.Record, error) {
	switch c.state {
	case StateUnstarted:
		if err := c.load(ctx); err != nil {
			return nil, err
		}
	case StateBeforeStart, StateExhausted:
		return nil, nil
	}
	return c.entry.At(c.record), nil
}

// Valid reports whether the cursor is on a record that can be consumed.
// It is true before anything was requested. Afterwards it is false past the
// query limit, after a failed fetch, or past the reported record total.
func (c *Cursor) Valid() bool {
	switch c.state {
	case StateUnstarted:
		return true
	case StateBeforeStart, StateExhausted:
		return false
	}

	key := c.Key()
	if limit, ok := c.fetcher.Query().Limit(); ok && key+1 > limit {
		return false
	}
	if c.fetcher.Failed() {
		return false
	}
	return key+1 <= c.totalCount
}

// enter requests the current page unless it lies past the last known page or
// wholly past the limit.
func (c *Cursor) enter(ctx context.Context) error {
	if c.pastEnd(c.page) {
		c.state = StateExhausted
		c.entry = nil
		c.logger.Debug().Int("page", c.page).Msg("Cursor exhausted")
		return nil
	}
	return c.load(ctx)
}

func (c *Cursor) pastEnd(page int) bool {
	if limit, ok := c.fetcher.Query().Limit(); ok && (page-1)*PageSize >= limit {
		return true
	}
	return c.knowsTotals() && page > c.totalPages
}

// knowsTotals reports whether the recorded totals belong to the active query.
func (c *Cursor) knowsTotals() bool {
	return c.haveTotals && c.totalsFor == c.fetcher.Query().Fingerprint()
}

// load requests the current page.
func (c *Cursor) load(ctx context.Context) error {
	entry, err := c.fetcher.FetchPage(ctx, c.page)
	if err != nil {
		return err
	}

	c.state = StatePositioned
	c.entry = entry
	if entry != nil {
		c.totalCount = entry.TotalCount
		c.totalPages = entry.TotalPages
		c.totalsFor = c.fetcher.Query().Fingerprint()
		c.haveTotals = true
	}
	return nil
}

func (c *Cursor) beforeStart() {
	c.page, c.record = 0, PageSize-1
	c.state = StateBeforeStart
	c.entry = nil
}
