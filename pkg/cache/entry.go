package cache

import (
	"time"
)

// Record is one search result (one book). Its fields are defined by the
// remote service and are not interpreted by the client.
type Record map[string]any

// PageEntry is one decoded result page.
type PageEntry struct {
	// Records are the results on this page, in server order.
	Records []Record `json:"records"`

	// TotalCount is the number of matching records reported by the server.
	TotalCount int `json:"total_count"`

	// TotalPages is the number of pages reported by the server.
	TotalPages int `json:"total_pages"`

	// FetchedAt is when the page was retrieved.
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of records on the page. Safe on a nil entry.
func (e *PageEntry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Records)
}

// At returns the record at index i, or nil when i is out of range.
func (e *PageEntry) At(i int) Record {
	if e == nil || i < 0 || i >= len(e.Records) {
		return nil
	}
	return e.Records[i]
}

// Age returns how long ago the page was fetched.
func (e *PageEntry) Age() time.Duration {
	if e == nil || e.FetchedAt.IsZero() {
		return 0
	}
	return time.Since(e.FetchedAt)
}
