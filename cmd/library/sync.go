package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lepinkainen/gamevault/internal/library"
)

// Sync reconciles the library with a JSON snapshot shared between devices,
// last writer wins. The snapshot is created when missing.
func Sync(ctx context.Context, path string, dryRun bool, w io.Writer) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("a snapshot path is required")
	}

	remote, err := readSnapshot(path)
	if err != nil {
		return err
	}

	store, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	local, err := store.List(ctx, library.Filter{})
	if err != nil {
		return err
	}
	tombstones, err := store.Tombstones(ctx)
	if err != nil {
		return err
	}

	plan := library.Reconcile(local, remote, tombstones)
	if _, err := fmt.Fprintf(w, "Upload %d, download %d, delete remote %d\n",
		len(plan.Upload), len(plan.Download), len(plan.DeleteRemote)); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	for _, g := range plan.Download {
		if err := store.Put(ctx, g); err != nil {
			return fmt.Errorf("storing %s: %w", g.ID, err)
		}
		slog.Debug("Downloaded game", "id", g.ID, "title", g.Title)
	}

	if len(plan.Upload) > 0 || len(plan.DeleteRemote) > 0 {
		if err := writeSnapshot(path, applyPlan(remote, plan)); err != nil {
			return err
		}
	}

	// Tombstones are only needed until the snapshot has seen them.
	return store.ClearTombstones(ctx, tombstones...)
}

func applyPlan(remote []library.Game, plan library.SyncPlan) []library.Game {
	byID := make(map[string]library.Game, len(remote)+len(plan.Upload))
	for _, g := range remote {
		byID[g.ID] = g
	}
	for _, id := range plan.DeleteRemote {
		delete(byID, id)
	}
	for _, g := range plan.Upload {
		byID[g.ID] = g
	}

	out := make([]library.Game, 0, len(byID))
	for _, g := range byID {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b library.Game) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func readSnapshot(path string) ([]library.Game, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var games []library.Game
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return games, nil
}

func writeSnapshot(path string, games []library.Game) error {
	data, err := json.MarshalIndent(games, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(fmt.Errorf("replacing snapshot: %w", err), os.Remove(tmp))
	}
	return nil
}
