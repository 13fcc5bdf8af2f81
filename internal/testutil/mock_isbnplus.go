// Package testutil provides testing utilities for the ISBN Plus client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PageSize is the number of records the mock returns per page.
const PageSize = 10

// Test credentials accepted by the mock.
const (
	TestAppID  = "test-app-id"
	TestAppKey = "test-app-key"
)

// MockResponse defines a canned response for one page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockISBNPlus is a configurable mock of the search service.
// It serves Total generated books, PageSize per page, at /search.
type MockISBNPlus struct {
	server *httptest.Server
	mu     sync.RWMutex

	// Total is the number of matching books the mock reports.
	Total int

	// XML switches responses from JSON to XML.
	XML bool

	overrides map[int]MockResponse

	// Tracking
	RequestCount int
	PageRequests map[int]int
	LastQuery    url.Values
	LastHeader   http.Header
}

// NewMockISBNPlus creates a mock serving total books.
func NewMockISBNPlus(total int) *MockISBNPlus {
	mock := &MockISBNPlus{
		Total:        total,
		overrides:    make(map[int]MockResponse),
		PageRequests: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the search endpoint URL.
func (m *MockISBNPlus) URL() string {
	return m.server.URL + "/search"
}

// Close shuts down the mock server.
func (m *MockISBNPlus) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockISBNPlus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PageRequests = make(map[int]int)
	m.LastQuery = nil
	m.LastHeader = nil
}

// SetPageResponse overrides the response for one page number.
func (m *MockISBNPlus) SetPageResponse(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[page] = resp
}

// ClearPageResponse removes an override.
func (m *MockISBNPlus) ClearPageResponse(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, page)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockISBNPlus) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPageRequests returns how often page was requested.
func (m *MockISBNPlus) GetPageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PageRequests[page]
}

// GetLastQuery returns the query string of the most recent request.
func (m *MockISBNPlus) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockISBNPlus) GetLastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastHeader
}

// RequestedPages returns the distinct pages requested so far, ascending.
func (m *MockISBNPlus) RequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pages []int
	for p := 1; len(pages) < len(m.PageRequests); p++ {
		if _, ok := m.PageRequests[p]; ok {
			pages = append(pages, p)
		}
		if p > 100000 {
			break
		}
	}
	return pages
}

func (m *MockISBNPlus) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("p"))

	m.mu.Lock()
	m.RequestCount++
	m.PageRequests[page]++
	m.LastQuery = q
	m.LastHeader = r.Header.Clone()
	override, hasOverride := m.overrides[page]
	total, useXML := m.Total, m.XML
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		for key, value := range override.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}

	if q.Get("app_id") != TestAppID || q.Get("app_key") != TestAppKey {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Authentication failed"}`))
		return
	}

	books := PageBooks(total, page)
	if useXML {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(XMLPage(total, books)))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(JSONPage(total, books)))
}

// Pages returns the page count for total records.
func Pages(total int) int {
	return (total + PageSize - 1) / PageSize
}

// Book returns the generated record for absolute index i.
func Book(i int) map[string]any {
	return map[string]any{
		"id":     strconv.Itoa(i),
		"title":  fmt.Sprintf("Book %d", i),
		"author": fmt.Sprintf("Author %d", i%7),
		"isbn13": fmt.Sprintf("978%010d", i),
	}
}

// PageBooks returns the records on page (1-based) out of total.
func PageBooks(total, page int) []map[string]any {
	if page < 1 {
		return nil
	}
	var books []map[string]any
	for i := (page - 1) * PageSize; i < page*PageSize && i < total; i++ {
		books = append(books, Book(i))
	}
	return books
}

// JSONPage renders a response the way the service does: a single book is
// not wrapped in a list and an empty page has empty results.
func JSONPage(total int, books []map[string]any) string {
	var results any
	switch len(books) {
	case 0:
		results = ""
	case 1:
		results = map[string]any{"book": books[0]}
	default:
		results = map[string]any{"book": books}
	}

	doc := map[string]any{
		"page": map[string]any{
			"count":   strconv.Itoa(total),
			"pages":   strconv.Itoa(Pages(total)),
			"results": results,
		},
	}
	data, _ := json.Marshal(doc)
	return string(data)
}

// XMLPage renders the XML form of a page.
func XMLPage(total int, books []map[string]any) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("<response><page>")
	fmt.Fprintf(&b, "<count>%d</count><pages>%d</pages>", total, Pages(total))
	if len(books) == 0 {
		b.WriteString("<results/>")
	} else {
		b.WriteString("<results>")
		for _, book := range books {
			fmt.Fprintf(&b, `<book id="%s"><title>%s</title><author>%s</author><isbn13>%s</isbn13></book>`,
				book["id"], book["title"], book["author"], book["isbn13"])
		}
		b.WriteString("</results>")
	}
	b.WriteString("</page></response>")
	return b.String()
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewForbiddenResponse creates a 403 response with an error body.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"error": "Authentication failed"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 response with no body.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
	}
}

// NewMalformedResponse creates a 200 response whose body cannot be decoded.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html><body>Service temporarily unavailable</body></html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}
