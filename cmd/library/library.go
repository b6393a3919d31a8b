// Package library implements the `gamevault library` subcommands.
package library

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/lepinkainen/gamevault/internal/cmdutil"
	"github.com/lepinkainen/gamevault/internal/config"
	"github.com/lepinkainen/gamevault/internal/library"
)

var openStore = library.Open

func open() (*library.Store, error) {
	dbPath := viper.GetString("library.dbfile")
	if dbPath == "" {
		dbPath = config.DefaultLibraryDB
	}
	return openStore(dbPath)
}

// ListOptions selects and formats games for `library list`.
type ListOptions struct {
	Search   string
	Platform string
	Status   string
	Sort     string
	Format   cmdutil.Format
}

// List prints the games matching opts.
func List(ctx context.Context, opts ListOptions, w io.Writer) error {
	filter := library.Filter{
		Search:   opts.Search,
		Platform: opts.Platform,
		Sort:     library.SortOrder(opts.Sort),
	}
	if opts.Status != "" {
		status, err := library.ParseStatus(opts.Status)
		if err != nil {
			return err
		}
		filter.Status = status
	}

	store, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	games, err := store.List(ctx, filter)
	if err != nil {
		return err
	}
	if games == nil {
		games = []library.Game{}
	}

	return cmdutil.Write(w, opts.Format, games, func(w io.Writer) error {
		return writeTable(w, games)
	})
}

func writeTable(w io.Writer, games []library.Game) error {
	if len(games) == 0 {
		_, err := fmt.Fprintln(w, "No games")
		return err
	}

	var b strings.Builder
	for _, g := range games {
		fmt.Fprintf(&b, "%-8s  %-9s  %-40s  %-12s  main %s\n",
			shortID(g.ID), g.Status, truncate(g.Title, 40), truncate(g.Platform, 12), cmdutil.Hours(g.MainStory))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Remove deletes a game by id or by a unique id prefix.
func Remove(ctx context.Context, id string, w io.Writer) error {
	store, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	game, err := findGame(ctx, store, id)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, game.ID); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Removed %s (%s)\n", game.Title, game.ID)
	return err
}

func findGame(ctx context.Context, store *library.Store, id string) (*library.Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("a game id is required")
	}
	if game, err := store.Get(ctx, id); err == nil {
		return game, nil
	}

	games, err := store.List(ctx, library.Filter{})
	if err != nil {
		return nil, err
	}
	var matches []library.Game
	for _, g := range games {
		if strings.HasPrefix(g.ID, id) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, library.ErrNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("id prefix %q matches %d games", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
