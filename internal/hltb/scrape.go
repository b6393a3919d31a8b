package hltb

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Pages shorter than this are error or challenge stubs, not game pages.
const minPageSize = 1000

var (
	numericIDPattern = regexp.MustCompile(`^\d+$`)
	challengeMarkers = []string{
		"cf-challenge",
		"challenge-platform",
		"<title>Just a moment",
		"Access denied",
	}
)

func looksBlocked(body string) bool {
	if len(body) < minPageSize {
		return true
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// resultFromPage builds a Result from parsed page fields. The query is the
// name of last resort.
func (u *Upstream) resultFromPage(id string, q Query, fields PageFields) *Result {
	name := fields.Name
	if name == "" {
		name = q.String()
	}
	return &Result{
		ID:            id,
		Name:          name,
		MainStory:     fields.MainStory,
		MainExtra:     fields.MainExtra,
		Completionist: fields.Completionist,
		ImageURL:      fields.ImageURL,
		SourceURL:     u.GameURL(id),
	}
}

// scrapeGame fetches a game page by id and runs the full parser chain. It is
// shared by the direct scrape and the search engine strategies.
func (u *Upstream) scrapeGame(ctx context.Context, id string, q Query) (*Result, error) {
	resp, err := getPage(ctx, u.HTTP, u.Limiter, u.GameURL(id))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.blocked():
		return nil, Failf(ReasonBlocked, "game page returned status %d", resp.status)
	case resp.status == http.StatusNotFound:
		return nil, Failf(ReasonNotFound, "game %s does not exist", id)
	case !resp.ok():
		return nil, Failf(ReasonTransport, "game page returned status %d", resp.status)
	}

	page := string(resp.body)
	if looksBlocked(page) {
		return nil, Failf(ReasonBlocked, "game page %s looks like a challenge (%d bytes)", id, len(page))
	}

	fields := ParseGamePage(page, u.BaseURL)
	if !fields.HasDurations() {
		return nil, Failf(ReasonParse, "no duration rule matched on game page %s", id)
	}

	return u.resultFromPage(id, q, fields), nil
}

// ScrapeStrategy fetches the upstream game page directly when the id is
// already known, either from an earlier resolution in this session or
// because the query itself is an upstream id.
type ScrapeStrategy struct {
	up    *Upstream
	hints *IDHints
}

var _ Strategy = (*ScrapeStrategy)(nil)

// NewScrapeStrategy creates the direct scrape strategy.
func NewScrapeStrategy(up *Upstream, hints *IDHints) *ScrapeStrategy {
	if hints == nil {
		hints = NewIDHints()
	}
	return &ScrapeStrategy{up: up, hints: hints}
}

// Name returns the strategy tag.
func (s *ScrapeStrategy) Name() string { return TagScrape }

// Attempt scrapes the page of a known id.
func (s *ScrapeStrategy) Attempt(ctx context.Context, q Query) (*Result, error) {
	id, ok := s.hints.Lookup(q)
	if !ok && numericIDPattern.MatchString(q.String()) {
		id, ok = q.String(), true
	}
	if !ok {
		return nil, Fail(ReasonNotFound, fmt.Errorf("no known game id for %q", q))
	}
	return s.up.scrapeGame(ctx, id, q)
}
