package obsidian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdown(t *testing.T) {
	t.Run("frontmatter and body", func(t *testing.T) {
		note, err := ParseMarkdown([]byte("---\ntitle: Hades\ntags: [game, roguelike]\n---\n\nBody text\n"))
		require.NoError(t, err)
		assert.Equal(t, "Hades", note.Frontmatter.GetString("title"))
		assert.Equal(t, []string{"game", "roguelike"}, note.Frontmatter.GetStringArray("tags"))
		assert.Equal(t, "Body text\n", note.Body)
	})

	t.Run("windows line endings", func(t *testing.T) {
		note, err := ParseMarkdown([]byte("---\r\ntitle: Hades\r\n---\r\nBody\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "Hades", note.Frontmatter.GetString("title"))
		assert.Equal(t, "Body\n", note.Body)
	})

	t.Run("no frontmatter", func(t *testing.T) {
		note, err := ParseMarkdown([]byte("just text"))
		require.NoError(t, err)
		assert.Empty(t, note.Frontmatter.Keys())
		assert.Equal(t, "just text", note.Body)
	})

	t.Run("unterminated frontmatter is body", func(t *testing.T) {
		note, err := ParseMarkdown([]byte("---\ntitle: Hades\n"))
		require.NoError(t, err)
		assert.Empty(t, note.Frontmatter.Keys())
		assert.Equal(t, "---\ntitle: Hades\n", note.Body)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseMarkdown([]byte("---\ntitle: [unclosed\n---\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse frontmatter")
	})
}

func TestBuildSortsKeysAndFlowsTags(t *testing.T) {
	fm := NewFrontmatter()
	fm.Set("title", "Celeste")
	fm.Set("tags", []string{"game", "platformer"})
	fm.Set("rating", 5)
	fm.Set("removed", nil)

	out, err := (&Note{Frontmatter: fm, Body: "Body\n"}).Build()
	require.NoError(t, err)

	assert.Equal(t, "---\nrating: 5\ntags: [game, platformer]\ntitle: Celeste\n---\nBody\n", string(out))
}

func TestBuildWithoutFrontmatter(t *testing.T) {
	out, err := (&Note{Frontmatter: NewFrontmatter(), Body: "Only body"}).Build()
	require.NoError(t, err)
	assert.Equal(t, "Only body", string(out))
}

func TestFrontmatterAccessors(t *testing.T) {
	fm := NewFrontmatter()
	fm.Set("b", "two")
	fm.Set("a", 1)

	assert.Equal(t, []string{"a", "b"}, fm.Keys())
	assert.Equal(t, "two", fm.GetString("b"))
	assert.Empty(t, fm.GetString("a"), "non-string values read as empty")

	v, ok := fm.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	fm.Delete("a")
	_, ok = fm.Get("a")
	assert.False(t, ok)
}
