// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/gamevault/internal/rawg"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected an item.
	ActionSelected
	// ActionSkipped indicates the user skipped the selection.
	ActionSkipped
	// ActionStopped indicates the user stopped processing entirely.
	ActionStopped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *rawg.Game
}

type gameItem struct {
	rawg.Game
}

func (i gameItem) Title() string {
	if year := i.ReleaseYear(); year != "" {
		return fmt.Sprintf("%s (%s)", strings.ToUpper(i.Name), year)
	}
	return strings.ToUpper(i.Name)
}

func (i gameItem) FilterValue() string {
	return i.Name
}

func (i gameItem) Description() string {
	return strings.Join(i.PlatformNames(), ", ")
}

type itemStyles struct {
	normal        lipgloss.Style
	selected      lipgloss.Style
	platformStyle lipgloss.Style
	titleStyle    lipgloss.Style
	ratingStyle   lipgloss.Style
	metadataStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.Copy().
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		platformStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		ratingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")),
		metadataStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
	}
}

type gameDelegate struct {
	styles itemStyles
}

func newDelegate() gameDelegate {
	return gameDelegate{styles: newItemStyles()}
}

func (d gameDelegate) Height() int                         { return 4 }
func (d gameDelegate) Spacing() int                        { return 1 }
func (d gameDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d gameDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	game, ok := item.(gameItem)
	if !ok {
		return
	}
	width := m.Width() - 4

	platforms := "UNKNOWN PLATFORM"
	if names := game.PlatformNames(); len(names) > 0 {
		platforms = strings.ToUpper(strings.Join(names, " / "))
	}

	platformLine := d.styles.platformStyle.Render("[" + truncate(platforms, width-2) + "]")
	titleLine := d.styles.titleStyle.Render(truncate(game.Title(), width))
	ratingLine := d.styles.ratingStyle.Render(formatRating(game.Rating))
	metadataLine := d.styles.metadataStyle.Render(formatMetadata(game.Game, width))

	content := lipgloss.JoinVertical(lipgloss.Left, platformLine, titleLine, ratingLine, metadataLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list        list.Model
	searchTitle string
	result      SelectionResult
}

func newModel(title string, items []gameItem) *model {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:        l,
		searchTitle: title,
		result:      SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(gameItem); ok {
				game := selected.Game
				m.result = SelectionResult{
					Action:    ActionSelected,
					Selection: &game,
				}
				return m, tea.Quit
			}
		case "s", "esc":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("Catalog matches for: %s", m.searchTitle))
	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		skipButtonStyle.Render(" Skip "),
		lipgloss.NewStyle().Padding(0, 2).Render(""),
		stopButtonStyle.Render(" Stop "),
	)
	help := helpStyle.Render("Up/Down navigate | Enter select | s skip | q stop")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), buttons, help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	skipButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("178")).
			Foreground(lipgloss.Color("0")).
			Bold(true)

	stopButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// SelectGame lets the user pick the catalog entry meant by title. No
// candidates counts as a skip.
func SelectGame(title string, games []rawg.Game) (SelectionResult, error) {
	if len(games) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	items := make([]gameItem, len(games))
	for i, game := range games {
		items[i] = gameItem{Game: game}
	}

	finalModel, err := runProgram(newModel(title, items))
	if err != nil {
		return SelectionResult{}, err
	}
	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}
	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}

func formatRating(rating float64) string {
	if rating <= 0 {
		return "not rated"
	}
	return fmt.Sprintf("%.2f/5", rating)
}

// formatMetadata joins release date and genres into one line.
func formatMetadata(game rawg.Game, availableWidth int) string {
	var parts []string
	if game.Released != "" {
		parts = append(parts, game.Released)
	}
	if genres := game.GenreNames(); len(genres) > 0 {
		parts = append(parts, strings.Join(genres, ", "))
	}
	if len(parts) == 0 {
		return "No metadata available"
	}
	return truncate(strings.Join(parts, " | "), availableWidth)
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
