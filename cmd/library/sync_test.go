package library

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/library"
)

func writeSnapshotFile(t *testing.T, path string, games ...library.Game) {
	t.Helper()
	data, err := json.Marshal(games)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func readSnapshotFile(t *testing.T, path string) map[string]library.Game {
	t.Helper()
	games, err := readSnapshot(path)
	require.NoError(t, err)
	out := make(map[string]library.Game, len(games))
	for _, g := range games {
		out[g.ID] = g
	}
	return out
}

func TestSyncCreatesSnapshot(t *testing.T) {
	store := setup(t, deps{})
	ctx := context.Background()
	game := &library.Game{Title: "Hades"}
	require.NoError(t, store.Add(ctx, game))

	path := filepath.Join(t.TempDir(), "shared", "library.json")
	var out bytes.Buffer
	require.NoError(t, Sync(ctx, path, false, &out))

	assert.Equal(t, "Upload 1, download 0, delete remote 0\n", out.String())
	snapshot := readSnapshotFile(t, path)
	require.Contains(t, snapshot, game.ID)
	assert.Equal(t, "Hades", snapshot[game.ID].Title)
}

func TestSyncLastWriterWins(t *testing.T) {
	store := setup(t, deps{})
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)

	require.NoError(t, store.Put(ctx, library.Game{ID: "a", Title: "Local newer", Status: library.StatusPlaying, AddedAt: old, UpdatedAt: newer}))
	require.NoError(t, store.Put(ctx, library.Game{ID: "b", Title: "Local older", Status: library.StatusBacklog, AddedAt: old, UpdatedAt: old}))

	path := filepath.Join(t.TempDir(), "library.json")
	writeSnapshotFile(t, path,
		library.Game{ID: "a", Title: "Remote older", Status: library.StatusBacklog, AddedAt: old, UpdatedAt: old},
		library.Game{ID: "b", Title: "Remote newer", Status: library.StatusFinished, AddedAt: old, UpdatedAt: newer},
		library.Game{ID: "c", Title: "Remote only", Status: library.StatusBacklog, AddedAt: old, UpdatedAt: old},
	)

	var out bytes.Buffer
	require.NoError(t, Sync(ctx, path, false, &out))
	assert.Equal(t, "Upload 1, download 2, delete remote 0\n", out.String())

	b, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Remote newer", b.Title)
	c, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "Remote only", c.Title)

	snapshot := readSnapshotFile(t, path)
	assert.Equal(t, "Local newer", snapshot["a"].Title)
	assert.Equal(t, "Remote newer", snapshot["b"].Title)
	assert.Len(t, snapshot, 3)
}

func TestSyncPropagatesDeletes(t *testing.T) {
	store := setup(t, deps{})
	ctx := context.Background()
	game := &library.Game{Title: "Hades"}
	require.NoError(t, store.Add(ctx, game))

	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, Sync(ctx, path, false, &bytes.Buffer{}))
	require.NoError(t, store.Delete(ctx, game.ID))

	var out bytes.Buffer
	require.NoError(t, Sync(ctx, path, false, &out))
	assert.Equal(t, "Upload 0, download 0, delete remote 1\n", out.String())
	assert.Empty(t, readSnapshotFile(t, path))

	tombstones, err := store.Tombstones(ctx)
	require.NoError(t, err)
	assert.Empty(t, tombstones)
}

func TestSyncDryRunChangesNothing(t *testing.T) {
	store := setup(t, deps{})
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, &library.Game{Title: "Hades"}))

	path := filepath.Join(t.TempDir(), "library.json")
	var out bytes.Buffer
	require.NoError(t, Sync(ctx, path, true, &out))

	assert.Equal(t, "Upload 1, download 0, delete remote 0\n", out.String())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSyncRejectsCorruptSnapshot(t *testing.T) {
	setup(t, deps{})
	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := Sync(context.Background(), path, false, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing snapshot")
}
