package main

import (
	"encoding/json"
	"strings"

	"github.com/bluora/isbnplus-go/pkg/cache"
	"github.com/bluora/isbnplus-go/pkg/pagination"
	"github.com/bluora/isbnplus-go/pkg/query"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	mode  string
	order string
	limit int
	page  int
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search books and print matching records as JSON lines",
		Long: `Search books and print one JSON object per matching record.

Without --page every result page is walked, up to --limit records.

Examples:
  isbnplus search --mode author "terry pratchett"
  isbnplus search --mode series discworld --order title --limit 25
  isbnplus search dune --page 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", string(query.ModeAny), "field to search: any, author, category, series, title")
	f.StringVarP(&opts.order, "order", "o", "", "sort order (default from config)")
	f.IntVarP(&opts.limit, "limit", "n", -1, "stop after this many records (negative for no limit)")
	f.IntVarP(&opts.page, "page", "p", 0, "print a single result page instead of walking all of them")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, opts *searchOptions, args []string) error {
	ctx := cmd.Context()

	mode, err := query.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	order := opts.order
	if order == "" {
		order = a.cfg.Order
	}

	q := query.New().
		WithMode(mode, strings.Join(args, " ")).
		WithOrder(order).
		WithLimit(opts.limit)

	transport, err := a.transport()
	if err != nil {
		return err
	}

	fetcher, err := pagination.NewFetcher(pagination.FetcherConfig{
		Transport:   transport,
		Credentials: a.cfg.Credentials,
		Query:       q,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())

	if opts.page > 0 {
		if _, err := fetcher.FetchPage(ctx, opts.page); err != nil {
			return err
		}
		if err := fetcher.Err(opts.page); err != nil {
			return err
		}
		for _, rec := range fetcher.Result() {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	return pagination.Each(ctx, pagination.NewCursor(fetcher), func(_ int, rec cache.Record) error {
		return enc.Encode(rec)
	})
}
