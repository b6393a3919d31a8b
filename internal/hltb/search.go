package hltb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lepinkainen/gamevault/internal/ratelimit"
)

// Engine is a general web search engine with an HTML results page.
type Engine struct {
	Name string
	// URL contains a single %s for the escaped query string.
	URL string
}

// DefaultEngines are tried in this order.
var DefaultEngines = []Engine{
	{Name: "duckduckgo", URL: "https://html.duckduckgo.com/html/?q=%s"},
	{Name: "bing", URL: "https://www.bing.com/search?q=%s"},
	{Name: "brave", URL: "https://search.brave.com/search?q=%s"},
}

// EngineByName returns a default engine by its name.
func EngineByName(name string) (Engine, bool) {
	for _, e := range DefaultEngines {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Engine{}, false
}

// SiteQuery builds the site-restricted query string for a title.
func SiteQuery(q Query) string {
	return "site:" + UpstreamDomain + "/game " + strings.Join(q.Terms(), " ")
}

// SearchStrategy discovers the upstream id through general web search
// engines and then scrapes the game page.
type SearchStrategy struct {
	up      *Upstream
	engines []Engine
	limiter *ratelimit.Limiter
}

var _ Strategy = (*SearchStrategy)(nil)

// NewSearchStrategy creates the search engine assisted strategy. The limiter
// throttles requests to the engines, separately from the upstream limiter.
func NewSearchStrategy(up *Upstream, engines []Engine, limiter *ratelimit.Limiter) *SearchStrategy {
	if len(engines) == 0 {
		engines = DefaultEngines
	}
	return &SearchStrategy{up: up, engines: engines, limiter: limiter}
}

// Name returns the strategy tag.
func (s *SearchStrategy) Name() string { return TagSearch }

// Attempt asks each engine in turn for an upstream game link. The first id
// found is scraped; engines after it are not consulted.
func (s *SearchStrategy) Attempt(ctx context.Context, q Query) (*Result, error) {
	var errs []error
	responded := false

	for _, engine := range s.engines {
		id, err := s.findID(ctx, engine, q)
		if err != nil {
			if FailureReason(err) == ReasonTimeout {
				return nil, err
			}
			slog.Debug("Search engine failed", "engine", engine.Name, "query", q, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", engine.Name, err))
			continue
		}
		responded = true
		if id == "" {
			slog.Debug("Search engine had no upstream link", "engine", engine.Name, "query", q)
			continue
		}

		slog.Debug("Search engine found game id", "engine", engine.Name, "query", q, "id", id)
		return s.up.scrapeGame(ctx, id, q)
	}

	if !responded && len(errs) > 0 {
		last := errs[len(errs)-1]
		return nil, Fail(FailureReason(last), errors.Join(errs...))
	}
	return nil, Failf(ReasonNotFound, "no engine returned a game link for %q", q)
}

func (s *SearchStrategy) findID(ctx context.Context, engine Engine, q Query) (string, error) {
	searchURL := fmt.Sprintf(engine.URL, url.QueryEscape(SiteQuery(q)))

	resp, err := getPage(ctx, s.up.HTTP, s.limiter, searchURL)
	if err != nil {
		return "", err
	}
	if resp.blocked() {
		return "", Failf(ReasonBlocked, "status %d", resp.status)
	}
	if !resp.ok() {
		return "", Failf(ReasonTransport, "status %d", resp.status)
	}

	id, _ := ExtractGameID(string(resp.body))
	return id, nil
}
