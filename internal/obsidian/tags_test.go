package obsidian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Action", "Action"},
		{"#roguelike", "roguelike"},
		{"  Massively Multiplayer  ", "Massively-Multiplayer"},
		{"Hack & Slash", "Hack-and-Slash"},
		{"platform/PC", "platform/PC"},
		{"--a -- b--", "a-b"},
		{"#", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTag(tt.in))
		})
	}
}

func TestTagSet(t *testing.T) {
	ts := NewTagSet("b", "#a", "b")
	ts.Add("")
	ts.AddIf(false, "skipped")
	ts.AddIf(true, "c d")

	assert.Equal(t, []string{"a", "b", "c-d"}, ts.Sorted())
}

func TestTagsFromAny(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, TagsFromAny([]string{"a", "", "b"}))
	assert.Equal(t, []string{"a"}, TagsFromAny([]any{"a", 3, ""}))
	assert.Equal(t, []string{}, TagsFromAny("not a list"))
	assert.Equal(t, []string{}, TagsFromAny(nil))
}
