package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bluora/isbnplus-go/pkg/cache"
	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/bluora/isbnplus-go/pkg/logging"
	"github.com/bluora/isbnplus-go/pkg/pagination"
	"github.com/bluora/isbnplus-go/pkg/query"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// defaultServeLimit caps /search responses that do not ask for a limit.
const defaultServeLimit = 50

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve book search over HTTP",
		Long: `Serve book search over HTTP.

Endpoints:
  GET /search?mode=author&text=pratchett&order=title&limit=20&page=2
  GET /health
  GET /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(ctx context.Context, a *app, addr string) error {
	transport, err := a.transport()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("isbnplus-server")
	if !a.cfg.Complete() {
		logger.Warn().
			Interface("missing", a.cfg.Missing()).
			Msg("Credentials incomplete, searches will fail")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(a.cfg, transport, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	logger.Info().Str("addr", addr).Msg("Starting search server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info().Msg("Search server stopped")
	return nil
}

func newMux(cfg *config.Config, transport pagination.Transport, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", searchHandler(cfg.Credentials, cfg.Order, transport, logger))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

type searchResponse struct {
	Query      string         `json:"query"`
	TotalCount int            `json:"total_count"`
	Records    []cache.Record `json:"records"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Code     int    `json:"code,omitempty"`
	HTTPCode int    `json:"http_code,omitempty"`
	RawError string `json:"raw_error,omitempty"`
}

// searchHandler answers one search per request, each with its own fetcher
// and page cache.
func searchHandler(creds config.Credentials, defaultOrder string, transport pagination.Transport, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"}, logger)
			return
		}

		q, page, err := parseSearch(r, defaultOrder)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()}, logger)
			return
		}

		fetcher, err := pagination.NewFetcher(pagination.FetcherConfig{
			Transport:   transport,
			Credentials: creds,
			Query:       q,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
			return
		}

		resp := searchResponse{Query: q.String()}

		if page > 0 {
			_, err = fetcher.FetchPage(r.Context(), page)
			if err == nil {
				err = fetcher.Err(page)
			}
			resp.Records = fetcher.Result()
			if entry := fetcher.Entry(); entry != nil {
				resp.TotalCount = entry.TotalCount
			}
		} else {
			cursor := pagination.NewCursor(fetcher)
			resp.Records, err = pagination.Collect(r.Context(), cursor)
			resp.TotalCount = cursor.TotalCount()
		}

		if err != nil {
			writeSearchError(w, err, logger)
			return
		}

		if resp.Records == nil {
			resp.Records = []cache.Record{}
		}
		writeJSON(w, http.StatusOK, resp, logger)
	}
}

func parseSearch(r *http.Request, defaultOrder string) (query.Query, int, error) {
	params := r.URL.Query()

	mode := query.ModeAny
	if m := params.Get("mode"); m != "" {
		parsed, err := query.ParseMode(m)
		if err != nil {
			return query.Query{}, 0, err
		}
		mode = parsed
	}

	order := params.Get("order")
	if order == "" {
		order = defaultOrder
	}

	limit := defaultServeLimit
	if l := params.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return query.Query{}, 0, fmt.Errorf("invalid limit %q", l)
		}
		limit = n
	}

	page := 0
	if p := params.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return query.Query{}, 0, fmt.Errorf("invalid page %q", p)
		}
		page = n
	}

	q := query.New().
		WithMode(mode, params.Get("text")).
		WithOrder(order).
		WithLimit(limit)

	return q, page, nil
}

func writeSearchError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		logger.Error().Err(err).Msg("Search rejected: server not configured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
		return
	}

	var fetchErr *pagination.FetchError
	if errors.As(err, &fetchErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:    err.Error(),
			Code:     fetchErr.State.Code,
			HTTPCode: fetchErr.State.HTTPStatus,
			RawError: fetchErr.State.RawError,
		}, logger)
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Int("status", status).Msg("Failed to write response")
	}
}
