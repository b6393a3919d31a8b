package rawg

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Search returns catalog matches for query. An empty query returns nothing
// without a request.
func (c *Client) Search(ctx context.Context, query string) ([]Game, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("page_size", strconv.Itoa(c.pageSize))

	var resp searchResponse
	if err := c.getJSON(ctx, "/games", params, &resp); err != nil {
		return nil, fmt.Errorf("rawg search %q: %w", query, err)
	}
	return resp.Results, nil
}

// Details fetches the full record for a game id.
func (c *Client) Details(ctx context.Context, id int) (*Game, error) {
	if id <= 0 {
		return nil, fmt.Errorf("rawg details: invalid id %d", id)
	}

	var game Game
	if err := c.getJSON(ctx, "/games/"+strconv.Itoa(id), nil, &game); err != nil {
		return nil, fmt.Errorf("rawg details %d: %w", id, err)
	}
	return &game, nil
}
