package rawg

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/gamevault/internal/cache"
)

// CachedSearchResults wraps search results for caching.
type CachedSearchResults struct {
	Results []Game `json:"results"`
}

// CachedSearch is Search backed by the response cache. Empty result sets are
// kept for the shorter negative TTL.
// Cache key format: search_{normalized_query}_{page_size}
func (c *Client) CachedSearch(ctx context.Context, query string) ([]Game, bool, error) {
	cacheKey := fmt.Sprintf("search_%s_%d", normalizeQuery(query), c.pageSize)

	result, fromCache, err := cache.GetOrFetchWithTTL(cache.RAWGTable, cacheKey, func() (*CachedSearchResults, error) {
		results, searchErr := c.Search(ctx, query)
		if searchErr != nil {
			return nil, searchErr
		}
		return &CachedSearchResults{Results: results}, nil
	}, cache.SelectNegativeCacheTTL(func(r *CachedSearchResults) bool {
		return r == nil || len(r.Results) == 0
	}))
	if err != nil {
		return nil, false, err
	}
	return result.Results, fromCache, nil
}

// CachedDetails is Details backed by the response cache.
// Cache key format: details_{id}
func (c *Client) CachedDetails(ctx context.Context, id int) (*Game, bool, error) {
	cacheKey := fmt.Sprintf("details_%d", id)
	return cache.GetOrFetch(cache.RAWGTable, cacheKey, func() (*Game, error) {
		return c.Details(ctx, id)
	})
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), "_")
}
