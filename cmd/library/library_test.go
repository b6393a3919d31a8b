package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/cmdutil"
	gverrors "github.com/lepinkainen/gamevault/internal/errors"
	"github.com/lepinkainen/gamevault/internal/fileutil"
	"github.com/lepinkainen/gamevault/internal/hltb"
	"github.com/lepinkainen/gamevault/internal/library"
	"github.com/lepinkainen/gamevault/internal/rawg"
	"github.com/lepinkainen/gamevault/internal/testutil"
	"github.com/lepinkainen/gamevault/internal/tui"
)

type fakeCatalog struct {
	results []rawg.Game
	details map[int]*rawg.Game
	err     error
}

func (f *fakeCatalog) CachedSearch(context.Context, string) ([]rawg.Game, bool, error) {
	return f.results, false, f.err
}

func (f *fakeCatalog) CachedDetails(_ context.Context, id int) (*rawg.Game, bool, error) {
	if d, ok := f.details[id]; ok {
		return d, false, nil
	}
	return nil, false, rawg.ErrNotFound
}

type fakeCovers string

func (f fakeCovers) CoverURL(context.Context, string) string { return string(f) }

type fakeResolver map[string]float64

func (f fakeResolver) Resolve(_ context.Context, title string) hltb.Outcome {
	if h, ok := f[title]; ok {
		return hltb.Outcome{Result: &hltb.Result{Name: title, MainStory: &h, Strategy: hltb.TagAPI}}
	}
	return hltb.Unavailable(hltb.Failure{Strategy: hltb.TagAPI, Reason: hltb.ReasonNotFound})
}

type deps struct {
	catalog  Catalog
	covers   CoverFinder
	resolver library.Resolver
}

func setup(t *testing.T, d deps) *library.Store {
	t.Helper()

	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	dbPath := testutil.SetupLibraryDB(t, env)

	origCatalog, origCovers, origResolver, origSelect := newCatalog, newCoverFinder, newResolver, selectGame
	t.Cleanup(func() {
		newCatalog, newCoverFinder, newResolver, selectGame = origCatalog, origCovers, origResolver, origSelect
	})
	newCatalog = func() Catalog { return d.catalog }
	newCoverFinder = func() CoverFinder { return d.covers }
	resolver := d.resolver
	if resolver == nil {
		resolver = fakeResolver{}
	}
	newResolver = func() library.Resolver { return resolver }
	selectGame = func(string, []rawg.Game) (tui.SelectionResult, error) {
		t.Fatal("selection UI should not be shown")
		return tui.SelectionResult{}, nil
	}

	store, err := library.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func listAll(t *testing.T, store *library.Store) []library.Game {
	t.Helper()
	games, err := store.List(context.Background(), library.Filter{Sort: library.SortName})
	require.NoError(t, err)
	return games
}

func TestAddWithoutCatalog(t *testing.T) {
	store := setup(t, deps{resolver: fakeResolver{"Celeste": 8}})

	var out bytes.Buffer
	err := Add(context.Background(), AddOptions{Title: "  Celeste ", Platform: "Switch", Status: "playing"}, &out)
	require.NoError(t, err)

	games := listAll(t, store)
	require.Len(t, games, 1)
	g := games[0]
	assert.Equal(t, "Celeste", g.Title)
	assert.Equal(t, "Switch", g.Platform)
	assert.Equal(t, library.StatusPlaying, g.Status)
	require.NotNil(t, g.MainStory)
	assert.InDelta(t, 8, *g.MainStory, 0.001)

	assert.Contains(t, out.String(), "Added Celeste")
	assert.Contains(t, out.String(), "Main story 8 h")
}

func TestAddFillsFromCatalog(t *testing.T) {
	metacritic := 93
	summary := rawg.Game{
		ID:              274755,
		Name:            "Hades",
		BackgroundImage: "https://media.example/hades.jpg",
		Released:        "2020-09-17",
		Platforms:       []rawg.PlatformSlot{{Platform: rawg.Named{Name: "PC"}}},
		Genres:          []rawg.Named{{Name: "Action"}, {Name: "Indie"}},
	}
	detail := summary
	detail.DescriptionRaw = "Defy the god of the dead."
	detail.Metacritic = &metacritic
	detail.Playtime = 21

	store := setup(t, deps{
		catalog: &fakeCatalog{results: []rawg.Game{summary}, details: map[int]*rawg.Game{summary.ID: &detail}},
	})

	err := Add(context.Background(), AddOptions{Title: "hades", NoEnrich: true}, &bytes.Buffer{})
	require.NoError(t, err)

	games := listAll(t, store)
	require.Len(t, games, 1)
	g := games[0]
	assert.Equal(t, "Hades", g.Title)
	assert.Equal(t, "2020", g.ReleaseYear)
	assert.Equal(t, "PC", g.Platform)
	assert.Equal(t, []string{"Action", "Indie"}, g.Tags)
	assert.Equal(t, "https://media.example/hades.jpg", g.Cover)
	assert.Equal(t, "Defy the god of the dead.", g.Description)
	require.NotNil(t, g.Metacritic)
	assert.Equal(t, 93, *g.Metacritic)
	assert.Equal(t, 274755, g.RawgID)
	assert.Equal(t, 21, g.RawgPlaytime)
	assert.Equal(t, library.StatusBacklog, g.Status)
	assert.Nil(t, g.MainStory)
}

func TestAddPrefersSteamGridCover(t *testing.T) {
	summary := rawg.Game{ID: 1, Name: "Hades", BackgroundImage: "https://media.example/bg.jpg"}
	store := setup(t, deps{
		catalog: &fakeCatalog{results: []rawg.Game{summary}, details: map[int]*rawg.Game{1: &summary}},
		covers:  fakeCovers("https://cdn.example/grid.png"),
	})

	require.NoError(t, Add(context.Background(), AddOptions{Title: "Hades", NoEnrich: true}, &bytes.Buffer{}))

	games := listAll(t, store)
	require.Len(t, games, 1)
	assert.Equal(t, "https://cdn.example/grid.png", games[0].Cover)
}

func TestAddInteractiveSelection(t *testing.T) {
	first := rawg.Game{ID: 1, Name: "Doom", Released: "1993-12-10"}
	second := rawg.Game{ID: 2, Name: "Doom", Released: "2016-05-13"}
	catalog := &fakeCatalog{
		results: []rawg.Game{first, second},
		details: map[int]*rawg.Game{1: &first, 2: &second},
	}

	t.Run("selected candidate is used", func(t *testing.T) {
		store := setup(t, deps{catalog: catalog})
		selectGame = func(title string, games []rawg.Game) (tui.SelectionResult, error) {
			assert.Equal(t, "doom", title)
			assert.Len(t, games, 2)
			return tui.SelectionResult{Action: tui.ActionSelected, Selection: &games[1]}, nil
		}

		require.NoError(t, Add(context.Background(), AddOptions{Title: "doom", NoEnrich: true}, &bytes.Buffer{}))
		games := listAll(t, store)
		require.Len(t, games, 1)
		assert.Equal(t, "2016", games[0].ReleaseYear)
	})

	t.Run("skip keeps the typed title", func(t *testing.T) {
		store := setup(t, deps{catalog: catalog})
		selectGame = func(string, []rawg.Game) (tui.SelectionResult, error) {
			return tui.SelectionResult{Action: tui.ActionSkipped}, nil
		}

		require.NoError(t, Add(context.Background(), AddOptions{Title: "doom", NoEnrich: true}, &bytes.Buffer{}))
		games := listAll(t, store)
		require.Len(t, games, 1)
		assert.Equal(t, "doom", games[0].Title)
		assert.Zero(t, games[0].RawgID)
	})

	t.Run("stop aborts without storing", func(t *testing.T) {
		store := setup(t, deps{catalog: catalog})
		selectGame = func(string, []rawg.Game) (tui.SelectionResult, error) {
			return tui.SelectionResult{Action: tui.ActionStopped}, nil
		}

		err := Add(context.Background(), AddOptions{Title: "doom"}, &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, gverrors.IsStopProcessingError(err))
		assert.Empty(t, listAll(t, store))
	})

	t.Run("non-interactive takes the first match", func(t *testing.T) {
		store := setup(t, deps{catalog: catalog})

		require.NoError(t, Add(context.Background(), AddOptions{Title: "doom", NoInteractive: true, NoEnrich: true}, &bytes.Buffer{}))
		games := listAll(t, store)
		require.Len(t, games, 1)
		assert.Equal(t, "1993", games[0].ReleaseYear)
	})
}

func TestAddCatalogFailureStillStores(t *testing.T) {
	store := setup(t, deps{catalog: &fakeCatalog{err: errors.New("RAWG down")}})

	require.NoError(t, Add(context.Background(), AddOptions{Title: "Outer Wilds", NoEnrich: true}, &bytes.Buffer{}))
	games := listAll(t, store)
	require.Len(t, games, 1)
	assert.Equal(t, "Outer Wilds", games[0].Title)
}

func TestAddDownloadsCover(t *testing.T) {
	summary := rawg.Game{ID: 1, Name: "Hades", BackgroundImage: "https://media.example/bg.jpg"}
	store := setup(t, deps{catalog: &fakeCatalog{results: []rawg.Game{summary}, details: map[int]*rawg.Game{1: &summary}}})
	testutil.SetViperValue(t, "covers.dir", "/covers")
	testutil.SetViperValue(t, "covers.maxwidth", 300)

	origDownload := downloadCover
	t.Cleanup(func() { downloadCover = origDownload })
	var got fileutil.CoverDownloadOptions
	downloadCover = func(_ context.Context, opts fileutil.CoverDownloadOptions) (*fileutil.CoverDownloadResult, error) {
		got = opts
		return &fileutil.CoverDownloadResult{Downloaded: true, LocalPath: "/covers/Hades.jpg"}, nil
	}

	require.NoError(t, Add(context.Background(), AddOptions{Title: "Hades", DownloadCover: true, NoEnrich: true}, &bytes.Buffer{}))

	assert.Equal(t, "https://media.example/bg.jpg", got.URL)
	assert.Equal(t, "/covers", got.OutputDir)
	assert.Equal(t, 300, got.MaxWidth)
	games := listAll(t, store)
	require.Len(t, games, 1)
	assert.Equal(t, "/covers/Hades.jpg", games[0].Cover)
}

func TestAddValidation(t *testing.T) {
	store := setup(t, deps{})

	require.Error(t, Add(context.Background(), AddOptions{Title: "   "}, &bytes.Buffer{}))
	require.Error(t, Add(context.Background(), AddOptions{Title: "Celeste", Status: "someday"}, &bytes.Buffer{}))
	assert.Empty(t, listAll(t, store))
}

func TestList(t *testing.T) {
	store := setup(t, deps{})
	ctx := context.Background()
	hours := 22.0
	require.NoError(t, store.Add(ctx, &library.Game{Title: "Hades", Platform: "PC", Status: library.StatusFinished, MainStory: &hours}))
	require.NoError(t, store.Add(ctx, &library.Game{Title: "Celeste", Platform: "Switch", Status: library.StatusBacklog}))

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, List(ctx, ListOptions{Sort: "name"}, &out))
		lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)
		assert.Contains(t, string(lines[0]), "Celeste")
		assert.Contains(t, string(lines[1]), "Hades")
		assert.Contains(t, string(lines[1]), "main 22 h")
	})

	t.Run("json with status filter", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, List(ctx, ListOptions{Status: "finished", Format: cmdutil.FormatJSON}, &out))
		var games []library.Game
		require.NoError(t, json.Unmarshal(out.Bytes(), &games))
		require.Len(t, games, 1)
		assert.Equal(t, "Hades", games[0].Title)
	})

	t.Run("empty json is an array", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, List(ctx, ListOptions{Platform: "Dreamcast", Format: cmdutil.FormatJSON}, &out))
		assert.JSONEq(t, "[]", out.String())
	})

	t.Run("invalid status", func(t *testing.T) {
		require.Error(t, List(ctx, ListOptions{Status: "wishlist"}, &bytes.Buffer{}))
	})
}

func TestRemove(t *testing.T) {
	store := setup(t, deps{})
	ctx := context.Background()
	game := &library.Game{Title: "Hades"}
	require.NoError(t, store.Add(ctx, game))

	var out bytes.Buffer
	require.NoError(t, Remove(ctx, game.ID[:8], &out))
	assert.Contains(t, out.String(), "Removed Hades")
	assert.Empty(t, listAll(t, store))

	tombstones, err := store.Tombstones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{game.ID}, tombstones)

	err = Remove(ctx, game.ID, &bytes.Buffer{})
	assert.ErrorIs(t, err, library.ErrNotFound)
}
