package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lepinkainen/gamevault/internal/csvutil"
	"github.com/lepinkainen/gamevault/internal/hltb"
	"github.com/lepinkainen/gamevault/internal/library"
)

// ImportOptions controls `library import`.
type ImportOptions struct {
	Input       string
	NoEnrich    bool
	Concurrency int
}

// Import adds every row of a CSV file with at least a title column. Known
// columns: title, platform, store, status, hours_played, rating, tags
// (separated by ';' or '|') and notes. Games already in the library with the
// same title and platform are skipped.
func Import(ctx context.Context, opts ImportOptions, w io.Writer) error {
	if strings.TrimSpace(opts.Input) == "" {
		return fmt.Errorf("input CSV file is required")
	}

	games, err := csvutil.ProcessCSV(opts.Input, parseGameRecord, csvutil.ProcessorOptions{
		Required:    []string{"title"},
		SkipInvalid: true,
	})
	if err != nil {
		return err
	}

	store, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	existing, err := store.List(ctx, library.Filter{})
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, g := range existing {
		seen[gameKey(g)] = true
	}

	var added []library.Game
	skipped := 0
	for _, g := range games {
		if seen[gameKey(g)] {
			skipped++
			slog.Debug("Skipping game already in library", "title", g.Title, "platform", g.Platform)
			continue
		}
		if err := store.Add(ctx, &g); err != nil {
			return err
		}
		seen[gameKey(g)] = true
		added = append(added, g)
	}

	if _, err := fmt.Fprintf(w, "Imported %d, skipped %d\n", len(added), skipped); err != nil {
		return err
	}
	if opts.NoEnrich || len(added) == 0 {
		return nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = hltb.ConfiguredConcurrency()
	}
	enricher := library.NewEnricher(ctx, newResolver(), store, min(concurrency, hltb.MaxConcurrency))
	for _, g := range added {
		enricher.Enqueue(g)
	}
	stats := enricher.Wait()
	_, err = fmt.Fprintf(w, "Enriched %d, unavailable %d, failed %d\n", stats.Enriched, stats.Unavailable, stats.Failed)
	return err
}

func parseGameRecord(r csvutil.Record) (library.Game, error) {
	title := r.Get("title")
	if title == "" {
		return library.Game{}, fmt.Errorf("title is empty")
	}
	status, err := library.ParseStatus(r.Get("status"))
	if err != nil {
		return library.Game{}, err
	}

	g := library.Game{
		Title:    title,
		Platform: r.Get("platform"),
		Store:    r.Get("store"),
		Status:   status,
		Notes:    r.Get("notes"),
	}

	if v := r.Get("hours_played"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil || hours < 0 {
			return library.Game{}, fmt.Errorf("invalid hours_played %q", v)
		}
		g.HoursPlayed = hours
	}
	if v := r.Get("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil || rating < 0 || rating > 5 {
			return library.Game{}, fmt.Errorf("invalid rating %q (0-5)", v)
		}
		g.Rating = rating
	}
	for _, tag := range strings.FieldsFunc(r.Get("tags"), func(c rune) bool { return c == ';' || c == '|' }) {
		if tag = strings.TrimSpace(tag); tag != "" {
			g.Tags = append(g.Tags, tag)
		}
	}
	return g, nil
}

func gameKey(g library.Game) string {
	return strings.ToLower(g.Title) + "\x00" + strings.ToLower(g.Platform)
}
