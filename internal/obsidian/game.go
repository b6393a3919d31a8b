package obsidian

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/gamevault/internal/cmdutil"
	"github.com/lepinkainen/gamevault/internal/library"
)

const (
	// DataStart and DataEnd delimit the generated part of a note body.
	DataStart = "<!-- GAMEVAULT_DATA_START -->"
	DataEnd   = "<!-- GAMEVAULT_DATA_END -->"

	statusTagPrefix = "game/"
)

// managedKeys are rewritten on every export; other frontmatter keys belong to
// the user.
var managedKeys = []string{
	"id", "title", "platform", "store", "status", "hours_played", "rating",
	"release_year", "main_story", "main_extra", "completionist", "playtime_url",
	"metacritic", "rawg_id", "cover", "added", "updated",
}

// RenderGame builds the note for g. When existing holds a previous version
// of the note, user frontmatter keys, user tags and text outside the data
// markers are kept.
func RenderGame(g library.Game, existing []byte) ([]byte, error) {
	note := &Note{Frontmatter: NewFrontmatter()}
	if len(existing) > 0 {
		parsed, err := ParseMarkdown(existing)
		if err != nil {
			return nil, err
		}
		note = parsed
	}

	fm := note.Frontmatter
	for _, key := range managedKeys {
		fm.Delete(key)
	}
	setGameFields(fm, g)
	fm.Set("tags", gameTags(g, fm.GetStringArray("tags")))

	note.Body = replaceData(note.Body, buildData(g))
	return note.Build()
}

func setGameFields(fm *Frontmatter, g library.Game) {
	fm.Set("id", g.ID)
	fm.Set("title", g.Title)
	fm.Set("status", string(g.Status))
	setString(fm, "platform", g.Platform)
	setString(fm, "store", g.Store)
	setString(fm, "release_year", g.ReleaseYear)
	setString(fm, "playtime_url", g.PlaytimeURL)
	setString(fm, "cover", g.Cover)

	if g.HoursPlayed > 0 {
		fm.Set("hours_played", g.HoursPlayed)
	}
	if g.Rating > 0 {
		fm.Set("rating", g.Rating)
	}
	if g.RawgID > 0 {
		fm.Set("rawg_id", g.RawgID)
	}
	if g.Metacritic != nil {
		fm.Set("metacritic", *g.Metacritic)
	}
	setHours(fm, "main_story", g.MainStory)
	setHours(fm, "main_extra", g.MainExtra)
	setHours(fm, "completionist", g.Completionist)

	if !g.AddedAt.IsZero() {
		fm.Set("added", g.AddedAt.UTC().Format("2006-01-02"))
	}
	if !g.UpdatedAt.IsZero() {
		fm.Set("updated", g.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
}

func setString(fm *Frontmatter, key, value string) {
	if value != "" {
		fm.Set(key, value)
	}
}

func setHours(fm *Frontmatter, key string, hours *float64) {
	if hours != nil {
		fm.Set(key, *hours)
	}
}

// gameTags merges the user's note tags with the generated ones. Old status
// tags are dropped so a status change does not leave stale tags behind.
func gameTags(g library.Game, noteTags []string) []string {
	ts := NewTagSet("game", statusTagPrefix+string(g.Status))
	for _, t := range noteTags {
		if !strings.HasPrefix(t, statusTagPrefix) {
			ts.Add(t)
		}
	}
	for _, t := range g.Tags {
		ts.Add(t)
	}
	ts.AddIf(g.Platform != "", "platform/"+strings.ToLower(g.Platform))
	return ts.Sorted()
}

func buildData(g library.Game) string {
	var blocks []string

	if embed := coverEmbed(g.Cover); embed != "" {
		blocks = append(blocks, embed)
	}

	if g.HasPlaytime() {
		var b strings.Builder
		b.WriteString("## Completion Times\n\n")
		b.WriteString("| | |\n|---|---|\n")
		fmt.Fprintf(&b, "| **Main Story** | %s |\n", cmdutil.Hours(g.MainStory))
		fmt.Fprintf(&b, "| **Main + Extras** | %s |\n", cmdutil.Hours(g.MainExtra))
		fmt.Fprintf(&b, "| **Completionist** | %s |", cmdutil.Hours(g.Completionist))
		if g.PlaytimeURL != "" {
			fmt.Fprintf(&b, "\n\nSource: %s", g.PlaytimeURL)
		}
		blocks = append(blocks, b.String())
	}

	if desc := strings.TrimSpace(g.Description); desc != "" {
		blocks = append(blocks, "## Description\n\n"+desc)
	}
	if notes := strings.TrimSpace(g.Notes); notes != "" {
		blocks = append(blocks, "## Notes\n\n"+notes)
	}

	return strings.Join(blocks, "\n\n")
}

// coverEmbed links remote covers and embeds local ones by file name.
func coverEmbed(cover string) string {
	switch {
	case cover == "":
		return ""
	case strings.HasPrefix(cover, "http://"), strings.HasPrefix(cover, "https://"):
		return fmt.Sprintf("![cover](%s)", cover)
	default:
		return fmt.Sprintf("![[%s|250]]", filepath.Base(cover))
	}
}

// replaceData swaps the generated block in body, or puts one at the top when
// the body has none yet.
func replaceData(body, data string) string {
	block := DataStart + "\n" + data + "\n" + DataEnd

	start := strings.Index(body, DataStart)
	end := strings.Index(body, DataEnd)
	if start == -1 || end == -1 || end <= start {
		if rest := strings.TrimSpace(body); rest != "" {
			return block + "\n\n" + rest + "\n"
		}
		return block + "\n"
	}

	before := strings.TrimSpace(body[:start])
	after := strings.TrimSpace(body[end+len(DataEnd):])

	var b strings.Builder
	if before != "" {
		b.WriteString(before)
		b.WriteString("\n\n")
	}
	b.WriteString(block)
	b.WriteString("\n")
	if after != "" {
		b.WriteString("\n")
		b.WriteString(after)
		b.WriteString("\n")
	}
	return b.String()
}
