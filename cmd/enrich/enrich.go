// Package enrich implements `gamevault enrich`, batch completion-time
// enrichment of the library.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/lepinkainen/gamevault/internal/config"
	"github.com/lepinkainen/gamevault/internal/hltb"
	"github.com/lepinkainen/gamevault/internal/library"
)

var (
	openStore   = library.Open
	newResolver = func(reg prometheus.Registerer) library.Resolver {
		return hltb.NewClientFromConfig(reg)
	}
)

// Options for a batch run.
type Options struct {
	// All re-resolves games that already have completion times
	All         bool
	Concurrency int
	Status      string
	MetricsFile string
}

// Run enriches every matching game and prints a summary line.
func Run(ctx context.Context, opts Options, w io.Writer) error {
	var status library.Status
	if opts.Status != "" {
		parsed, err := library.ParseStatus(opts.Status)
		if err != nil {
			return err
		}
		status = parsed
	}

	dbPath := viper.GetString("library.dbfile")
	if dbPath == "" {
		dbPath = config.DefaultLibraryDB
	}
	store, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	games, err := store.List(ctx, library.Filter{
		Status:          status,
		MissingPlaytime: !opts.All,
		Sort:            library.SortName,
	})
	if err != nil {
		return err
	}
	if len(games) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to enrich")
		return err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = hltb.ConfiguredConcurrency()
	}
	concurrency = min(concurrency, hltb.MaxConcurrency)

	registry := prometheus.NewRegistry()
	enricher := library.NewEnricher(ctx, newResolver(registry), store, concurrency)

	slog.Info("Enriching library", "games", len(games), "concurrency", concurrency)
	for _, g := range games {
		if ctx.Err() != nil {
			break
		}
		enricher.Enqueue(g)
	}
	stats := enricher.Wait()

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, registry); err != nil {
			slog.Warn("Failed to write metrics", "file", opts.MetricsFile, "error", err)
		}
	}

	_, err = fmt.Fprintf(w, "Enriched %d, unchanged %d, unavailable %d, failed %d (of %d)\n",
		stats.Enriched, stats.Unchanged, stats.Unavailable, stats.Failed, len(games))
	if err != nil {
		return err
	}
	return ctx.Err()
}
