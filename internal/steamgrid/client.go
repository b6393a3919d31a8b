// Package steamgrid looks up cover art on SteamGridDB.
package steamgrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gverrors "github.com/lepinkainen/gamevault/internal/errors"
	"github.com/lepinkainen/gamevault/internal/ratelimit"
)

const (
	defaultBaseURL = "https://www.steamgriddb.com/api/v2"
	// DefaultDimensions is the portrait grid size used for library covers.
	DefaultDimensions = "600x900"
	serviceName       = "SteamGridDB"
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("steamgrid: API key not configured (set steamgrid.apikey or STEAMGRID_API_KEY)")

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Game is a SteamGridDB game entry.
type Game struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Types    []string `json:"types,omitempty"`
	Verified bool     `json:"verified"`
}

// Image is a single grid, hero or logo asset.
type Image struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Thumb  string `json:"thumb"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
}

type envelope[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data"`
	Errors  []string `json:"errors,omitempty"`
}

// Client is a SteamGridDB API client.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  HTTPDoer
	rateLimiter *ratelimit.Limiter
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// NewClient creates a new SteamGridDB client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: ratelimit.New(serviceName, 2),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRateLimiter sets a custom rate limiter for the client.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}

// Search autocompletes a title to SteamGridDB games.
func (c *Client) Search(ctx context.Context, query string) ([]Game, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var resp envelope[[]Game]
	if err := c.get(ctx, "/search/autocomplete/"+url.PathEscape(query), nil, &resp); err != nil {
		return nil, fmt.Errorf("steamgrid search %q: %w", query, err)
	}
	return resp.Data, nil
}

// Grid returns the first grid image URL for gameID, or "" when there is none.
// An empty dimensions uses DefaultDimensions.
func (c *Client) Grid(ctx context.Context, gameID int, dimensions string) (string, error) {
	if dimensions == "" {
		dimensions = DefaultDimensions
	}
	params := url.Values{}
	params.Set("dimensions", dimensions)

	var resp envelope[[]Image]
	if err := c.get(ctx, "/grids/game/"+strconv.Itoa(gameID), params, &resp); err != nil {
		return "", fmt.Errorf("steamgrid grids for %d: %w", gameID, err)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	// The first grid is the highest voted.
	return resp.Data[0].URL, nil
}

// CoverURL finds a portrait cover for title. Lookup problems are logged and
// yield "" so adding a game never depends on artwork.
func (c *Client) CoverURL(ctx context.Context, title string) string {
	if c.apiKey == "" {
		return ""
	}

	games, _, err := c.CachedSearch(ctx, title)
	if err != nil {
		slog.Warn("Cover search failed", "title", title, "error", err)
		return ""
	}
	if len(games) == 0 {
		slog.Debug("No SteamGridDB match", "title", title)
		return ""
	}

	cover, _, err := c.CachedGrid(ctx, games[0].ID, DefaultDimensions)
	if err != nil {
		slog.Warn("Cover grid lookup failed", "title", title, "game_id", games[0].ID, "error", err)
		return ""
	}
	return cover
}

func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return gverrors.NewAPIAccessError(serviceName, resp.StatusCode, errorMessage(body))
	case resp.StatusCode == http.StatusTooManyRequests:
		return gverrors.NewRateLimitError("steamgrid: rate limit exceeded")
	case resp.StatusCode == http.StatusNotFound:
		// Unknown game ids come back as 404 with an empty data set.
		return json.Unmarshal([]byte(`{"success":false,"data":[]}`), target)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, errorMessage(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var resp envelope[json.RawMessage]
	if json.Unmarshal(body, &resp) == nil && len(resp.Errors) > 0 {
		return strings.Join(resp.Errors, "; ")
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
