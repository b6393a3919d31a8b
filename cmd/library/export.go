package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/gamevault/internal/fileutil"
	"github.com/lepinkainen/gamevault/internal/library"
	"github.com/lepinkainen/gamevault/internal/obsidian"
)

// Export writes one markdown note per game into dir. Notes that already
// exist are updated in place, keeping what the user wrote around the
// generated section.
func Export(ctx context.Context, dir string, w io.Writer) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("an output directory is required")
	}

	store, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	games, err := store.List(ctx, library.Filter{Sort: library.SortName})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var created, updated, unchanged int
	for _, g := range noteFilenames(games) {
		path := filepath.Join(dir, g.filename)

		existing, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		content, err := obsidian.RenderGame(g.game, existing)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", g.game.Title, err)
		}

		switch {
		case existing == nil:
			created++
		case bytes.Equal(existing, content):
			unchanged++
			continue
		default:
			updated++
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	_, err = fmt.Fprintf(w, "Notes created %d, updated %d, unchanged %d\n", created, updated, unchanged)
	return err
}

type noteFile struct {
	game     library.Game
	filename string
}

// noteFilenames names notes after titles; titles that collide after
// sanitizing get the platform, then the short id appended.
func noteFilenames(games []library.Game) []noteFile {
	counts := make(map[string]int, len(games))
	for _, g := range games {
		counts[strings.ToLower(fileutil.SanitizeFilename(g.Title))]++
	}

	used := make(map[string]bool, len(games))
	out := make([]noteFile, 0, len(games))
	for _, g := range games {
		name := fileutil.SanitizeFilename(g.Title)
		if counts[strings.ToLower(name)] > 1 && g.Platform != "" {
			name = fileutil.SanitizeFilename(fmt.Sprintf("%s (%s)", g.Title, g.Platform))
		}
		if name == "" {
			name = shortID(g.ID)
		}
		if used[strings.ToLower(name)] {
			name = fmt.Sprintf("%s %s", name, shortID(g.ID))
		}
		used[strings.ToLower(name)] = true
		out = append(out, noteFile{game: g, filename: name + ".md"})
	}
	return out
}
