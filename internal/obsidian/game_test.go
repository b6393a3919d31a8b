package obsidian

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/library"
)

func ptr[T any](v T) *T { return &v }

func sampleGame() library.Game {
	return library.Game{
		ID:          "0b7c",
		Title:       "Hollow Knight",
		Platform:    "Switch",
		Status:      library.StatusPlaying,
		HoursPlayed: 12.5,
		Tags:        []string{"Metroidvania"},
		ReleaseYear: "2017",
		MainStory:   ptr(27.0),
		MainExtra:   ptr(42.5),
		PlaytimeURL: "https://howlongtobeat.com/game/26286",
		Cover:       "https://cdn.example/hk.png",
		Description: "Descend into Hallownest.",
		AddedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}
}

func TestRenderGameNewNote(t *testing.T) {
	out, err := RenderGame(sampleGame(), nil)
	require.NoError(t, err)

	note, err := ParseMarkdown(out)
	require.NoError(t, err)
	fm := note.Frontmatter

	assert.Equal(t, "Hollow Knight", fm.GetString("title"))
	assert.Equal(t, "playing", fm.GetString("status"))
	assert.Equal(t, "2017", fm.GetString("release_year"))
	assert.Equal(t, []string{"Metroidvania", "game", "game/playing", "platform/switch"}, fm.GetStringArray("tags"))
	main, _ := fm.Get("main_story")
	assert.EqualValues(t, 27, main)
	_, hasCompletionist := fm.Get("completionist")
	assert.False(t, hasCompletionist)

	assert.True(t, strings.HasPrefix(note.Body, DataStart+"\n"))
	assert.Contains(t, note.Body, "![cover](https://cdn.example/hk.png)")
	assert.Contains(t, note.Body, "| **Main Story** | 27 h |")
	assert.Contains(t, note.Body, "| **Main + Extras** | 42.5 h |")
	assert.Contains(t, note.Body, "| **Completionist** | - |")
	assert.Contains(t, note.Body, "Source: https://howlongtobeat.com/game/26286")
	assert.Contains(t, note.Body, "## Description\n\nDescend into Hallownest.")
	assert.Contains(t, string(out), "tags: [Metroidvania, game, game/playing, platform/switch]")
}

func TestRenderGameKeepsUserContent(t *testing.T) {
	existing := "---\n" +
		"title: Old Title\n" +
		"status: backlog\n" +
		"tags: [game, game/backlog, favourite]\n" +
		"mood: cozy\n" +
		"---\n" +
		"My intro\n\n" +
		DataStart + "\nstale generated text\n" + DataEnd + "\n\n" +
		"## Journal\n\nBeat Hornet today.\n"

	out, err := RenderGame(sampleGame(), []byte(existing))
	require.NoError(t, err)

	note, err := ParseMarkdown(out)
	require.NoError(t, err)
	fm := note.Frontmatter

	assert.Equal(t, "Hollow Knight", fm.GetString("title"))
	assert.Equal(t, "cozy", fm.GetString("mood"))
	assert.Equal(t, []string{"Metroidvania", "favourite", "game", "game/playing", "platform/switch"}, fm.GetStringArray("tags"))

	assert.True(t, strings.HasPrefix(note.Body, "My intro\n\n"+DataStart))
	assert.NotContains(t, note.Body, "stale generated text")
	assert.True(t, strings.HasSuffix(note.Body, DataEnd+"\n\n## Journal\n\nBeat Hornet today.\n"))
}

func TestRenderGameWrapsUnmarkedBody(t *testing.T) {
	out, err := RenderGame(library.Game{ID: "1", Title: "Tetris", Status: library.StatusBacklog}, []byte("Handwritten notes\n"))
	require.NoError(t, err)

	note, err := ParseMarkdown(out)
	require.NoError(t, err)
	assert.Equal(t, DataStart+"\n\n"+DataEnd+"\n\nHandwritten notes\n", note.Body)
}

func TestRenderGameIsStable(t *testing.T) {
	first, err := RenderGame(sampleGame(), nil)
	require.NoError(t, err)
	second, err := RenderGame(sampleGame(), first)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestCoverEmbed(t *testing.T) {
	assert.Empty(t, coverEmbed(""))
	assert.Equal(t, "![cover](http://x/y.jpg)", coverEmbed("http://x/y.jpg"))
	assert.Equal(t, "![[Hades.jpg|250]]", coverEmbed("covers/Hades.jpg"))
}
