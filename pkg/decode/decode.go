// Package decode turns ISBN Plus response bodies into result pages.
//
// The service answers with either XML or JSON carrying the same document:
//
//	page.count          total matching records
//	page.pages          total pages
//	page.results.book   one record object, a list of them, or nothing
//
// A single record that is not wrapped in a list is normalized to a
// one-element slice, and an absent or empty result set to an empty slice.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bluora/isbnplus-go/pkg/cache"
	"github.com/spf13/cast"
)

// ErrInvalidPayload is wrapped by every PayloadError.
var ErrInvalidPayload = errors.New("invalid response payload")

// Format is the wire encoding of a response body.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// PayloadError reports a body that could not be turned into a page.
type PayloadError struct {
	Format Format
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v (%s): %s: %v", ErrInvalidPayload, e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v (%s): %s", ErrInvalidPayload, e.Format, e.Reason)
}

// Unwrap returns ErrInvalidPayload so callers can match with errors.Is.
func (e *PayloadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidPayload, e.Err}
	}
	return []error{ErrInvalidPayload}
}

// Detect picks the format from the Content-Type header, falling back to
// sniffing the first non-space byte of the body.
func Detect(contentType string, body []byte) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "xml"):
		return FormatXML
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	return FormatJSON
}

// Page decodes body into a PageEntry.
func Page(body []byte, contentType string) (*cache.PageEntry, error) {
	format := Detect(contentType, body)

	var (
		doc map[string]any
		err error
	)
	switch format {
	case FormatXML:
		doc, err = parseXML(body)
	default:
		doc, err = parseJSON(body)
	}
	if err != nil {
		return nil, &PayloadError{Format: format, Reason: "malformed body", Err: err}
	}

	return fromDocument(doc, format)
}

func parseJSON(body []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("empty document")
	}
	return doc, nil
}

// fromDocument extracts the page fields from a generic document.
func fromDocument(doc map[string]any, format Format) (*cache.PageEntry, error) {
	page, ok := doc["page"].(map[string]any)
	if !ok {
		return nil, &PayloadError{Format: format, Reason: "missing page element"}
	}

	count, err := toInt(page["count"])
	if err != nil {
		return nil, &PayloadError{Format: format, Reason: "page.count is not a number", Err: err}
	}
	pages, err := toInt(page["pages"])
	if err != nil {
		return nil, &PayloadError{Format: format, Reason: "page.pages is not a number", Err: err}
	}

	records, err := books(page["results"])
	if err != nil {
		return nil, &PayloadError{Format: format, Reason: "page.results.book", Err: err}
	}

	return &cache.PageEntry{
		Records:    records,
		TotalCount: count,
		TotalPages: pages,
	}, nil
}

// toInt treats absent and empty values as zero.
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		return cast.ToIntE(strings.TrimSpace(t))
	case map[string]any:
		if len(t) == 0 {
			return 0, nil
		}
	}
	return cast.ToIntE(v)
}

// books normalizes page.results.book into a slice of records.
func books(results any) ([]cache.Record, error) {
	container, ok := results.(map[string]any)
	if !ok {
		if isEmpty(results) {
			return []cache.Record{}, nil
		}
		return nil, fmt.Errorf("unexpected results of type %T", results)
	}

	switch book := container["book"].(type) {
	case nil:
		return []cache.Record{}, nil
	case map[string]any:
		if len(book) == 0 {
			return []cache.Record{}, nil
		}
		return []cache.Record{cache.Record(book)}, nil
	case []any:
		records := make([]cache.Record, 0, len(book))
		for i, item := range book {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d has type %T, want object", i, item)
			}
			records = append(records, cache.Record(m))
		}
		return records, nil
	case string:
		if strings.TrimSpace(book) == "" {
			return []cache.Record{}, nil
		}
		return nil, fmt.Errorf("unexpected text %q", book)
	default:
		return nil, fmt.Errorf("unexpected book of type %T", book)
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
