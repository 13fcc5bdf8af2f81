// Package pagination turns the page-at-a-time search service into a single
// record stream.
//
// A Fetcher combines a query, credentials, a page cache and a transport. It
// serves cached pages directly and records the outcome of every real fetch
// in an ErrorState rather than returning it: apart from incomplete
// credentials, fetch failures are polled with Failed, Code, HTTPCode and
// RawError.
//
// A Cursor walks records across page boundaries in both directions:
//
//	f, _ := pagination.NewFetcher(pagination.FetcherConfig{
//		Transport:   transport,
//		Credentials: creds,
//		Query:       query.Author("Pratchett").WithLimit(25),
//	})
//	c := pagination.NewCursor(f)
//	for rec, err := c.Rewind(ctx); err == nil && c.Valid(); rec, err = c.Next(ctx) {
//		fmt.Println(c.Key(), rec["title"])
//	}
//
// Each and Collect wrap that loop and turn a failed fetch into a *FetchError.
//
// Pages hold PageSize records. Moving onto a page requests it, unless the
// page lies past the last page reported by the service or past the query
// limit, in which case the cursor is exhausted.
//
// Neither type is safe for concurrent use.
package pagination
