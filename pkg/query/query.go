// Package query holds the search parameters sent to the ISBN Plus search service.
//
// A Query is an immutable value: every setter returns a modified copy, so a
// query can be shared between cursors without one caller's changes leaking
// into another's traversal.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Mode selects which field the search text is matched against.
type Mode string

const (
	// ModeAny matches the text against every indexed field.
	ModeAny Mode = "any"

	// ModeAuthor matches author names.
	ModeAuthor Mode = "author"

	// ModeCategory matches category names.
	ModeCategory Mode = "category"

	// ModeSeries matches book series names.
	ModeSeries Mode = "series"

	// ModeTitle matches book titles.
	ModeTitle Mode = "title"
)

// DefaultOrder is the sort order used when none is configured.
const DefaultOrder = "published"

// paramKeys maps a mode to the query string parameter the service expects.
var paramKeys = map[Mode]string{
	ModeAny:      "q",
	ModeAuthor:   "a",
	ModeCategory: "c",
	ModeSeries:   "s",
	ModeTitle:    "t",
}

// Key returns the request parameter name for the mode.
// Unknown modes fall back to the any-field parameter.
func (m Mode) Key() string {
	if key, ok := paramKeys[m]; ok {
		return key
	}
	return paramKeys[ModeAny]
}

// Valid reports whether m is one of the five supported modes.
func (m Mode) Valid() bool {
	_, ok := paramKeys[m]
	return ok
}

// ParseMode converts a mode name (e.g. "author") to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown search mode %q", s)
	}
	return m, nil
}

// Query is the search state: one active mode with its text, a sort order and
// an optional upper bound on the number of records to iterate.
type Query struct {
	mode  Mode
	text  string
	order string
	limit int // 0 = unlimited; stored as n+1 so that a zero limit can be expressed
}

// New returns an any-field query with the default order and no limit.
func New() Query {
	return Query{mode: ModeAny, order: DefaultOrder}
}

// Everything searches every field for text.
func Everything(text string) Query { return New().Everything(text) }

// Author searches author names for text.
func Author(text string) Query { return New().Author(text) }

// Category searches categories for text.
func Category(text string) Query { return New().Category(text) }

// Series searches book series for text.
func Series(text string) Query { return New().Series(text) }

// Title searches titles for text.
func Title(text string) Query { return New().Title(text) }

// Everything returns a copy of q searching every field for text.
func (q Query) Everything(text string) Query { return q.WithMode(ModeAny, text) }

// Author returns a copy of q searching author names for text.
func (q Query) Author(text string) Query { return q.WithMode(ModeAuthor, text) }

// Category returns a copy of q searching categories for text.
func (q Query) Category(text string) Query { return q.WithMode(ModeCategory, text) }

// Series returns a copy of q searching book series for text.
func (q Query) Series(text string) Query { return q.WithMode(ModeSeries, text) }

// Title returns a copy of q searching titles for text.
func (q Query) Title(text string) Query { return q.WithMode(ModeTitle, text) }

// WithMode replaces mode and text together.
func (q Query) WithMode(mode Mode, text string) Query {
	if !mode.Valid() {
		mode = ModeAny
	}
	q.mode = mode
	q.text = text
	return q
}

// WithOrder returns a copy of q with the given sort order.
func (q Query) WithOrder(order string) Query {
	q.order = order
	return q
}

// WithLimit returns a copy of q that stops iteration after n records.
// A negative n removes the limit.
func (q Query) WithLimit(n int) Query {
	if n < 0 {
		q.limit = 0
		return q
	}
	q.limit = n + 1
	return q
}

// Mode returns the active search mode.
func (q Query) Mode() Mode {
	if q.mode == "" {
		return ModeAny
	}
	return q.mode
}

// Text returns the search text.
func (q Query) Text() string { return q.text }

// Order returns the sort order.
func (q Query) Order() string { return q.order }

// Limit returns the configured record limit and whether one is set.
func (q Query) Limit() (int, bool) {
	if q.limit == 0 {
		return 0, false
	}
	return q.limit - 1, true
}

// Params renders the search portion of a request: the mode key mapped to the
// text, the page number and the sort order.
func (q Query) Params(page int) url.Values {
	v := url.Values{}
	v.Set(q.Mode().Key(), q.text)
	v.Set("p", strconv.Itoa(page))
	v.Set("order", q.order)
	return v
}

// Fingerprint identifies the result set the query selects on the server.
// The limit is a client-side bound and is not part of it.
func (q Query) Fingerprint() string {
	return fmt.Sprintf("%s=%s:order=%s", q.Mode().Key(), url.QueryEscape(q.text), url.QueryEscape(q.order))
}

// String implements fmt.Stringer.
func (q Query) String() string {
	if n, ok := q.Limit(); ok {
		return fmt.Sprintf("%s:%q order=%s limit=%d", q.Mode(), q.text, q.order, n)
	}
	return fmt.Sprintf("%s:%q order=%s", q.Mode(), q.text, q.order)
}
