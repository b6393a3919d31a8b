package hltb

import (
	"context"
	"sync"
)

// Strategy tags, reported in Result.Strategy and Failure.Strategy.
const (
	TagAPI      = "api"
	TagKeyedAPI = "api_keyed"
	TagSearch   = "search"
	TagScrape   = "scrape"
	TagRendered = "rendered"
)

// Strategy is one self-contained way of obtaining data from the upstream.
// Attempt must never panic on upstream input and must report every failure
// as an error (preferably a *StrategyError); a nil result with a nil error
// is treated as not_found.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, q Query) (*Result, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	Tag string
	Fn  func(ctx context.Context, q Query) (*Result, error)
}

// Name returns the strategy tag.
func (s StrategyFunc) Name() string { return s.Tag }

// Attempt calls the wrapped function.
func (s StrategyFunc) Attempt(ctx context.Context, q Query) (*Result, error) {
	return s.Fn(ctx, q)
}

// IDHints remembers the upstream id of queries resolved earlier in the
// session so the direct page scrape can skip discovery.
type IDHints struct {
	mu  sync.RWMutex
	ids map[Query]string
}

// NewIDHints creates an empty hint table.
func NewIDHints() *IDHints {
	return &IDHints{ids: make(map[Query]string)}
}

// Remember records the id for a query.
func (h *IDHints) Remember(q Query, id string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids[q] = id
}

// Lookup returns the remembered id for a query.
func (h *IDHints) Lookup(q Query) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.ids[q]
	return id, ok
}
