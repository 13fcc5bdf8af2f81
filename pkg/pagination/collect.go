package pagination

import (
	"context"
	"time"

	"github.com/bluora/isbnplus-go/pkg/cache"
)

// progressEvery is how often Each logs progress, in records.
const progressEvery = 50

// VisitFunc is called by Each for every record. Returning an error stops the walk.
type VisitFunc func(key int, record cache.Record) error

// Each rewinds c and calls fn for every valid record until the cursor runs
// out of records, reaches the query limit or a fetch fails. A failed fetch is
// returned as a *FetchError. Positions without a record are skipped.
func Each(ctx context.Context, c *Cursor, fn VisitFunc) error {
	start := time.Now()
	f := c.Fetcher()

	c.logger.Info().
		Str("query", f.Query().String()).
		Msg("Starting result walk")

	visited := 0
	rec, err := c.Rewind(ctx)
	for ; err == nil && c.Valid(); rec, err = c.Next(ctx) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if rec == nil {
			continue
		}

		if err := fn(c.Key(), rec); err != nil {
			return err
		}
		visited++

		if visited%progressEvery == 0 {
			progress := 0.0
			if total := c.TotalCount(); total > 0 {
				progress = float64(visited) / float64(total) * 100
			}
			c.logger.Info().
				Int("visited", visited).
				Int("total", c.TotalCount()).
				Float64("progress_pct", progress).
				Msg("Walk progress")
		}
	}
	if err != nil {
		return err
	}

	if failure := f.Err(c.page); failure != nil {
		c.logger.Warn().
			Err(failure).
			Int("visited", visited).
			Msg("Walk stopped by failed fetch")
		return failure
	}

	c.logger.Info().
		Int("visited", visited).
		Int("pages", f.Fetches()).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return nil
}

// Collect returns every record Each visits. On failure the records gathered
// so far are returned with the error.
func Collect(ctx context.Context, c *Cursor) ([]cache.Record, error) {
	var records []cache.Record
	err := Each(ctx, c, func(_ int, rec cache.Record) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}
