package library

import (
	"context"
	"fmt"
	"strings"
)

// SortOrder selects the ordering of List results.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortName   SortOrder = "name"
	SortRating SortOrder = "rating"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Search is a case-insensitive substring of the title, platform or a tag
	Search   string
	Platform string
	Status   Status
	// MissingPlaytime keeps only games without any completion estimate
	MissingPlaytime bool
	Sort            SortOrder
}

func (f Filter) orderBy() (string, error) {
	switch f.Sort {
	case "", SortNewest:
		return "added_at DESC, id", nil
	case SortName:
		return "title COLLATE NOCASE ASC, id", nil
	case SortRating:
		return "rating DESC, title COLLATE NOCASE ASC", nil
	default:
		return "", fmt.Errorf("invalid sort order %q (valid: newest, name, rating)", f.Sort)
	}
}

// List returns the games matching filter.
func (s *Store) List(ctx context.Context, filter Filter) ([]Game, error) {
	order, err := filter.orderBy()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		where = append(where, `(lower(title) LIKE ? ESCAPE '\' OR lower(platform) LIKE ? ESCAPE '\' OR lower(tags) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if filter.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, filter.Platform)
	}
	if filter.Status != "" {
		status, err := ParseStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		where = append(where, "status = ?")
		args = append(args, string(status))
	}
	if filter.MissingPlaytime {
		where = append(where, "main_story IS NULL AND main_extra IS NULL AND completionist IS NULL")
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read game row: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
