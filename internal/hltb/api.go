package hltb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Fixed search defaults. Changing any of these changes which game comes
// back first, so they stay constant.
const (
	searchType     = "games"
	searchPage     = 1
	searchPageSize = 5
)

type searchRequest struct {
	SearchType    string        `json:"searchType"`
	SearchTerms   []string      `json:"searchTerms"`
	SearchPage    int           `json:"searchPage"`
	Size          int           `json:"size"`
	SearchOptions searchOptions `json:"searchOptions"`
}

type searchOptions struct {
	Games      gameSearchOptions `json:"games"`
	Users      userSearchOptions `json:"users"`
	Filter     string            `json:"filter"`
	Sort       int               `json:"sort"`
	Randomizer int               `json:"randomizer"`
}

type gameSearchOptions struct {
	UserID        int             `json:"userId"`
	Platform      string          `json:"platform"`
	SortCategory  string          `json:"sortCategory"`
	RangeCategory string          `json:"rangeCategory"`
	RangeTime     rangeTime       `json:"rangeTime"`
	Gameplay      gameplayOptions `json:"gameplay"`
	Modifier      string          `json:"modifier"`
}

type rangeTime struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type gameplayOptions struct {
	Perspective string `json:"perspective"`
	Flow        string `json:"flow"`
	Genre       string `json:"genre"`
}

type userSearchOptions struct {
	SortCategory string `json:"sortCategory"`
}

func newSearchRequest(q Query) searchRequest {
	return searchRequest{
		SearchType:  searchType,
		SearchTerms: q.Terms(),
		SearchPage:  searchPage,
		Size:        searchPageSize,
		SearchOptions: searchOptions{
			Games: gameSearchOptions{
				SortCategory:  "popular",
				RangeCategory: "main",
			},
			Users: userSearchOptions{SortCategory: "postcount"},
		},
	}
}

type searchResponse struct {
	Data []searchGame `json:"data"`
}

type searchGame struct {
	GameID    int64   `json:"game_id"`
	GameName  string  `json:"game_name"`
	CompMain  float64 `json:"comp_main"`
	CompPlus  float64 `json:"comp_plus"`
	Comp100   float64 `json:"comp_100"`
	GameImage string  `json:"game_image"`
}

func (u *Upstream) resultFromSearch(g searchGame) *Result {
	id := strconv.FormatInt(g.GameID, 10)
	result := &Result{
		ID:            id,
		Name:          g.GameName,
		MainStory:     ToHours(g.CompMain),
		MainExtra:     ToHours(g.CompPlus),
		Completionist: ToHours(g.Comp100),
		SourceURL:     u.GameURL(id),
	}
	if g.GameImage != "" {
		result.ImageURL = absoluteURL(u.BaseURL+"/games", g.GameImage)
	}
	return result
}

// postSearch sends the search payload to endpoint and maps the first hit.
func (u *Upstream) postSearch(ctx context.Context, endpoint string, q Query) (*Result, error) {
	payload, err := json.Marshal(newSearchRequest(q))
	if err != nil {
		return nil, Fail(ReasonParse, fmt.Errorf("encoding search request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, Fail(ReasonTransport, fmt.Errorf("creating request: %w", err))
	}
	setBrowserHeaders(req, acceptJSON)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", u.BaseURL)
	req.Header.Set("Referer", u.BaseURL+"/")

	resp, err := do(ctx, u.HTTP, u.Limiter, req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.blocked():
		return nil, Failf(ReasonBlocked, "search returned status %d", resp.status)
	case !resp.ok():
		return nil, Failf(ReasonNotFound, "search returned status %d: %s", resp.status, resp.snippet())
	}

	var decoded searchResponse
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return nil, Fail(ReasonParse, fmt.Errorf("decoding search response: %w", err))
	}
	if len(decoded.Data) == 0 {
		return nil, Failf(ReasonNotFound, "no search results for %q", q)
	}

	// The first hit is the most popular match for the terms.
	return u.resultFromSearch(decoded.Data[0]), nil
}

// APIStrategy calls the upstream's JSON search endpoint directly.
type APIStrategy struct {
	up *Upstream
}

var _ Strategy = (*APIStrategy)(nil)

// NewAPIStrategy creates the direct search API strategy.
func NewAPIStrategy(up *Upstream) *APIStrategy {
	return &APIStrategy{up: up}
}

// Name returns the strategy tag.
func (s *APIStrategy) Name() string { return TagAPI }

// Attempt posts the search payload to the fixed search endpoint.
func (s *APIStrategy) Attempt(ctx context.Context, q Query) (*Result, error) {
	return s.up.postSearch(ctx, s.up.BaseURL+"/api/search", q)
}
