package resolve

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/cmdutil"
	"github.com/lepinkainen/gamevault/internal/hltb"
	"github.com/lepinkainen/gamevault/internal/testutil"
)

type fakeResolver struct {
	outcome   hltb.Outcome
	resolved  []string
	refreshed []string
}

func (f *fakeResolver) Resolve(_ context.Context, title string) hltb.Outcome {
	f.resolved = append(f.resolved, title)
	return f.outcome
}

func (f *fakeResolver) Refresh(_ context.Context, title string) hltb.Outcome {
	f.refreshed = append(f.refreshed, title)
	return f.outcome
}

func hours(v float64) *float64 { return &v }

func witcher() hltb.Outcome {
	return hltb.Outcome{Result: &hltb.Result{
		ID:            "10270",
		Name:          "The Witcher 3: Wild Hunt",
		MainStory:     hours(51.5),
		MainExtra:     hours(103),
		Completionist: hours(173),
		SourceURL:     "https://howlongtobeat.com/game/10270",
		Strategy:      hltb.TagAPI,
	}}
}

func useResolver(t *testing.T, r *fakeResolver) {
	t.Helper()
	orig := newResolver
	newResolver = func(prometheus.Registerer) Resolver { return r }
	t.Cleanup(func() { newResolver = orig })
}

func TestRunText(t *testing.T) {
	r := &fakeResolver{outcome: witcher()}
	useResolver(t, r)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{Title: "witcher 3"}, &out))

	testutil.NewGoldenHelper(t, "testdata").AssertGoldenString("found.txt", out.String())
	assert.Equal(t, []string{"witcher 3"}, r.resolved)
	assert.Empty(t, r.refreshed)
}

func TestRunUnavailableText(t *testing.T) {
	useResolver(t, &fakeResolver{outcome: hltb.Unavailable(
		hltb.Failure{Strategy: hltb.TagAPI, Reason: hltb.ReasonBlocked},
		hltb.Failure{Strategy: hltb.TagKeyedAPI, Reason: hltb.ReasonTimeout},
		hltb.Failure{Strategy: hltb.TagScrape, Reason: hltb.ReasonNotFound},
		hltb.Failure{Strategy: hltb.TagSearch, Reason: hltb.ReasonNotFound},
	)})

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{Title: "zzzz"}, &out))

	testutil.NewGoldenHelper(t, "testdata").AssertGoldenString("unavailable.txt", out.String())
}

func TestRunRefreshJSON(t *testing.T) {
	r := &fakeResolver{outcome: witcher()}
	useResolver(t, r)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{Title: "witcher 3", Refresh: true, Format: cmdutil.FormatJSON}, &out))

	assert.Equal(t, []string{"witcher 3"}, r.refreshed)
	assert.Contains(t, out.String(), `"main_story": 51.5`)
	assert.Contains(t, out.String(), `"strategy": "api"`)
}

func TestRunWritesMetrics(t *testing.T) {
	useResolver(t, &fakeResolver{outcome: witcher()})
	path := filepath.Join(t.TempDir(), "hltb.prom")

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), Options{Title: "witcher 3", MetricsFile: path}, &out))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestRunRequiresTitle(t *testing.T) {
	require.Error(t, Run(context.Background(), Options{Title: "  "}, &bytes.Buffer{}))
}
