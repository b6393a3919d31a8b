package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lepinkainen/gamevault/internal/hltb"
)

func TestApplyPlaytime(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	result := &hltb.Result{
		ID:            "10270",
		MainStory:     ptr(51.5),
		MainExtra:     ptr(103.0),
		Completionist: ptr(173.0),
		ImageURL:      "https://howlongtobeat.com/games/10270_The_Witcher_3.jpg",
		SourceURL:     "https://howlongtobeat.com/game/10270",
		Strategy:      hltb.TagAPI,
	}

	t.Run("fills empty game", func(t *testing.T) {
		g := &Game{Title: "The Witcher 3"}
		assert.True(t, ApplyPlaytime(g, result, now))
		assert.InDelta(t, 51.5, *g.MainStory, 0.001)
		assert.InDelta(t, 173.0, *g.Completionist, 0.001)
		assert.Equal(t, result.SourceURL, g.PlaytimeURL)
		assert.Equal(t, result.ImageURL, g.Cover)
		assert.Equal(t, now, g.UpdatedAt)
	})

	t.Run("keeps existing cover", func(t *testing.T) {
		g := &Game{Title: "The Witcher 3", Cover: "covers/witcher.jpg"}
		ApplyPlaytime(g, result, now)
		assert.Equal(t, "covers/witcher.jpg", g.Cover)
	})

	t.Run("missing durations keep previous values", func(t *testing.T) {
		g := &Game{Title: "Celeste", Completionist: ptr(38.0), PlaytimeURL: "https://howlongtobeat.com/game/42818"}
		partial := &hltb.Result{MainStory: ptr(8.5), SourceURL: "https://howlongtobeat.com/game/42818"}
		assert.True(t, ApplyPlaytime(g, partial, now))
		assert.InDelta(t, 8.5, *g.MainStory, 0.001)
		assert.Nil(t, g.MainExtra)
		assert.InDelta(t, 38.0, *g.Completionist, 0.001)
	})

	t.Run("different upstream game replaces all durations", func(t *testing.T) {
		g := &Game{
			Title:         "Celeste",
			MainStory:     ptr(8.5),
			Completionist: ptr(38.0),
			PlaytimeURL:   "https://howlongtobeat.com/game/42818",
		}
		other := &hltb.Result{MainExtra: ptr(2.0), SourceURL: "https://howlongtobeat.com/game/99999"}
		assert.True(t, ApplyPlaytime(g, other, now))
		assert.Nil(t, g.MainStory)
		assert.InDelta(t, 2.0, *g.MainExtra, 0.001)
		assert.Nil(t, g.Completionist)
		assert.Equal(t, other.SourceURL, g.PlaytimeURL)
	})

	t.Run("same result is not a change", func(t *testing.T) {
		g := &Game{Title: "The Witcher 3"}
		ApplyPlaytime(g, result, now)
		later := now.Add(time.Hour)
		assert.False(t, ApplyPlaytime(g, result, later))
		assert.Equal(t, now, g.UpdatedAt)
	})

	t.Run("nil result", func(t *testing.T) {
		g := &Game{Title: "Celeste"}
		assert.False(t, ApplyPlaytime(g, nil, now))
	})
}
