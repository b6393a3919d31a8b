package library

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/gamevault/internal/hltb"
)

// Resolver looks up completion times for a title.
type Resolver interface {
	Resolve(ctx context.Context, title string) hltb.Outcome
}

// GameStore is the part of Store the enricher writes through.
type GameStore interface {
	Get(ctx context.Context, id string) (*Game, error)
	Update(ctx context.Context, g *Game) error
}

// EnrichStats summarises a batch of enrichments.
type EnrichStats struct {
	Enriched    int
	Unchanged   int
	Unavailable int
	Failed      int
}

// Enricher resolves completion times in the background and writes
// successful results back to the store. Enrichment failures are logged and
// counted, never returned.
type Enricher struct {
	resolver Resolver
	store    GameStore
	ctx      context.Context
	group    *errgroup.Group
	now      func() time.Time

	enriched, unchanged, unavailable, failed atomic.Int64
}

// NewEnricher creates an enricher running at most concurrency lookups at once.
func NewEnricher(ctx context.Context, resolver Resolver, store GameStore, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = hltb.DefaultConcurrency
	}
	group := &errgroup.Group{}
	group.SetLimit(concurrency)

	return &Enricher{
		resolver: resolver,
		store:    store,
		ctx:      ctx,
		group:    group,
		now:      time.Now,
	}
}

// Enqueue schedules enrichment of g. It blocks while the pool is full.
func (e *Enricher) Enqueue(g Game) {
	e.group.Go(func() error {
		e.enrich(g)
		return nil
	})
}

// Wait blocks until every enqueued game has been processed.
func (e *Enricher) Wait() EnrichStats {
	_ = e.group.Wait()
	return EnrichStats{
		Enriched:    int(e.enriched.Load()),
		Unchanged:   int(e.unchanged.Load()),
		Unavailable: int(e.unavailable.Load()),
		Failed:      int(e.failed.Load()),
	}
}

func (e *Enricher) enrich(g Game) {
	if e.ctx.Err() != nil {
		e.failed.Add(1)
		return
	}

	outcome := e.resolver.Resolve(e.ctx, g.Title)
	if !outcome.Found() {
		slog.Info("No completion times found", "title", g.Title, "reasons", outcome.Reasons())
		e.unavailable.Add(1)
		return
	}

	// Re-read so edits made while the lookup ran are not overwritten.
	current, err := e.store.Get(e.ctx, g.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Debug("Game removed before enrichment finished", "id", g.ID, "title", g.Title)
		} else {
			slog.Warn("Failed to reload game for enrichment", "id", g.ID, "error", err)
		}
		e.failed.Add(1)
		return
	}

	if !ApplyPlaytime(current, outcome.Result, e.now()) {
		e.unchanged.Add(1)
		return
	}
	if err := e.store.Update(e.ctx, current); err != nil {
		slog.Warn("Failed to save completion times", "id", g.ID, "title", g.Title, "error", err)
		e.failed.Add(1)
		return
	}

	slog.Info("Enriched game",
		"title", current.Title,
		"strategy", outcome.Result.Strategy,
		"main_story", deref(current.MainStory),
	)
	e.enriched.Add(1)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
