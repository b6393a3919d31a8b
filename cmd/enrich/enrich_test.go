package enrich

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/hltb"
	"github.com/lepinkainen/gamevault/internal/library"
	"github.com/lepinkainen/gamevault/internal/testutil"
)

type fakeResolver struct {
	mu     sync.Mutex
	titles []string
	hours  map[string]float64
}

func (f *fakeResolver) Resolve(_ context.Context, title string) hltb.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	if h, ok := f.hours[title]; ok {
		return hltb.Outcome{Result: &hltb.Result{MainStory: &h, Strategy: hltb.TagAPI}}
	}
	return hltb.Unavailable(hltb.Failure{Strategy: hltb.TagAPI, Reason: hltb.ReasonNotFound})
}

func setup(t *testing.T, resolver *fakeResolver) *library.Store {
	t.Helper()

	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	dbPath := testutil.SetupLibraryDB(t, env)

	orig := newResolver
	newResolver = func(prometheus.Registerer) library.Resolver { return resolver }
	t.Cleanup(func() { newResolver = orig })

	store, err := library.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addGames(t *testing.T, store *library.Store, games ...*library.Game) {
	t.Helper()
	for _, g := range games {
		require.NoError(t, store.Add(context.Background(), g))
	}
}

func TestRunEnrichesMissingOnly(t *testing.T) {
	resolver := &fakeResolver{hours: map[string]float64{"Celeste": 8.5, "Hades": 22}}
	store := setup(t, resolver)

	known := 30.0
	addGames(t, store,
		&library.Game{Title: "Celeste"},
		&library.Game{Title: "Hades"},
		&library.Game{Title: "Unknown Indie"},
		&library.Game{Title: "Already Done", MainStory: &known},
	)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{Concurrency: 2}, &out))

	assert.Equal(t, "Enriched 2, unchanged 0, unavailable 1, failed 0 (of 3)\n", out.String())
	slices.Sort(resolver.titles)
	assert.Equal(t, []string{"Celeste", "Hades", "Unknown Indie"}, resolver.titles)

	games, err := store.List(context.Background(), library.Filter{MissingPlaytime: true})
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Unknown Indie", games[0].Title)
}

func TestRunAllAndStatus(t *testing.T) {
	resolver := &fakeResolver{hours: map[string]float64{"Celeste": 8.5}}
	store := setup(t, resolver)

	known := 8.5
	addGames(t, store,
		&library.Game{Title: "Celeste", Status: library.StatusPlaying, MainStory: &known},
		&library.Game{Title: "Hades", Status: library.StatusBacklog},
	)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{All: true, Status: "playing"}, &out))

	assert.Equal(t, []string{"Celeste"}, resolver.titles)
	assert.Contains(t, out.String(), "unchanged 1")
}

func TestRunNothingToDo(t *testing.T) {
	resolver := &fakeResolver{}
	setup(t, resolver)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{}, &out))
	assert.Equal(t, "Nothing to enrich\n", out.String())
	assert.Zero(t, len(resolver.titles))
}

func TestRunInvalidStatus(t *testing.T) {
	setup(t, &fakeResolver{})
	require.Error(t, Run(context.Background(), Options{Status: "wishlist"}, &bytes.Buffer{}))
}
