package steamgrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/gamevault/internal/cache"
)

// CachedSearchResults wraps autocomplete results for caching.
type CachedSearchResults struct {
	Games []Game `json:"games"`
}

// CachedGrid wraps a grid lookup for caching; an empty URL is a valid answer.
type CachedGrid struct {
	URL string `json:"url"`
}

// CachedSearch is Search backed by the response cache.
// Cache key format: search_{normalized_query}
func (c *Client) CachedSearch(ctx context.Context, query string) ([]Game, bool, error) {
	cacheKey := "search_" + strings.Join(strings.Fields(strings.ToLower(query)), "_")

	result, fromCache, err := cache.GetOrFetchWithTTL(cache.SteamGridTable, cacheKey, func() (*CachedSearchResults, error) {
		games, err := c.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return &CachedSearchResults{Games: games}, nil
	}, cache.SelectNegativeCacheTTL(func(r *CachedSearchResults) bool {
		return r == nil || len(r.Games) == 0
	}))
	if err != nil {
		return nil, false, err
	}
	return result.Games, fromCache, nil
}

// CachedGrid is Grid backed by the response cache.
// Cache key format: grid_{game_id}_{dimensions}
func (c *Client) CachedGrid(ctx context.Context, gameID int, dimensions string) (string, bool, error) {
	if dimensions == "" {
		dimensions = DefaultDimensions
	}
	cacheKey := fmt.Sprintf("grid_%d_%s", gameID, dimensions)

	result, fromCache, err := cache.GetOrFetchWithTTL(cache.SteamGridTable, cacheKey, func() (*CachedGrid, error) {
		u, err := c.Grid(ctx, gameID, dimensions)
		if err != nil {
			return nil, err
		}
		return &CachedGrid{URL: u}, nil
	}, cache.SelectNegativeCacheTTL(func(r *CachedGrid) bool {
		return r == nil || r.URL == ""
	}))
	if err != nil {
		return "", false, err
	}
	return result.URL, fromCache, nil
}
