package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/rawg"
)

func testGames() []rawg.Game {
	return []rawg.Game{
		{
			ID:        3328,
			Name:      "The Witcher 3: Wild Hunt",
			Released:  "2015-05-18",
			Rating:    4.66,
			Platforms: []rawg.PlatformSlot{{Platform: rawg.Named{Name: "PC"}}},
			Genres:    []rawg.Named{{Name: "RPG"}},
		},
		{ID: 58617, Name: "The Witcher 3: Blood and Wine"},
	}
}

func testModel() *model {
	games := testGames()
	items := make([]gameItem, len(games))
	for i, g := range games {
		items[i] = gameItem{Game: g}
	}
	return newModel("witcher 3", items)
}

func press(m *model, key tea.KeyMsg) *model {
	next, _ := m.Update(key)
	return next.(*model)
}

func TestModelSelect(t *testing.T) {
	m := testModel()
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ActionSelected, m.result.Action)
	require.NotNil(t, m.result.Selection)
	assert.Equal(t, 58617, m.result.Selection.ID)
}

func TestModelSkipAndStop(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want SelectionAction
	}{
		{"s skips", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}, ActionSkipped},
		{"esc skips", tea.KeyMsg{Type: tea.KeyEsc}, ActionSkipped},
		{"q stops", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, ActionStopped},
		{"ctrl+c stops", tea.KeyMsg{Type: tea.KeyCtrlC}, ActionStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(testModel(), tt.key)
			assert.Equal(t, tt.want, m.result.Action)
			assert.Nil(t, m.result.Selection)
		})
	}
}

func TestModelView(t *testing.T) {
	view := testModel().View()
	assert.Contains(t, view, "Catalog matches for: witcher 3")
	assert.Contains(t, view, "THE WITCHER 3: WILD HUNT (2015)")
	assert.Contains(t, view, "[PC]")
}

func TestSelectGame(t *testing.T) {
	original := runProgram
	t.Cleanup(func() { runProgram = original })

	runProgram = func(m tea.Model) (tea.Model, error) {
		typed := m.(*model)
		next, _ := typed.Update(tea.KeyMsg{Type: tea.KeyEnter})
		return next, nil
	}

	result, err := SelectGame("witcher 3", testGames())
	require.NoError(t, err)
	assert.Equal(t, ActionSelected, result.Action)
	assert.Equal(t, 3328, result.Selection.ID)
}

func TestSelectGameNoCandidates(t *testing.T) {
	original := runProgram
	t.Cleanup(func() { runProgram = original })
	runProgram = func(tea.Model) (tea.Model, error) {
		t.Fatal("program should not run")
		return nil, nil
	}

	result, err := SelectGame("nothing", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, result.Action)
}

func TestSelectGameProgramError(t *testing.T) {
	original := runProgram
	t.Cleanup(func() { runProgram = original })
	runProgram = func(tea.Model) (tea.Model, error) {
		return nil, errors.New("no tty")
	}

	_, err := SelectGame("witcher 3", testGames())
	require.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "not rated", formatRating(0))
	assert.Equal(t, "4.66/5", formatRating(4.66))
	assert.Equal(t, "No metadata available", formatMetadata(rawg.Game{}, 40))
	assert.Equal(t, "2015-05-18 | RPG", formatMetadata(testGames()[0], 40))
	assert.Equal(t, "abc...", truncate("abcdefgh", 6))
	assert.Equal(t, 40, clamp(72, 30, 40))
	assert.Equal(t, 50, clamp(72, 50, 40))
}
