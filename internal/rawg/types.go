package rawg

import (
	"strings"
)

// Game is a catalog entry. Search results carry the summary fields; Details
// also fills Playtime, DescriptionRaw and Metacritic.
type Game struct {
	ID              int            `json:"id" yaml:"id"`
	Slug            string         `json:"slug,omitempty" yaml:"slug,omitempty"`
	Name            string         `json:"name" yaml:"name"`
	BackgroundImage string         `json:"background_image,omitempty" yaml:"background_image,omitempty"`
	Released        string         `json:"released,omitempty" yaml:"released,omitempty"`
	Rating          float64        `json:"rating,omitempty" yaml:"rating,omitempty"`
	Platforms       []PlatformSlot `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Genres          []Named        `json:"genres,omitempty" yaml:"genres,omitempty"`

	// Average playtime in hours
	Playtime       int    `json:"playtime,omitempty" yaml:"playtime,omitempty"`
	DescriptionRaw string `json:"description_raw,omitempty" yaml:"description_raw,omitempty"`
	Metacritic     *int   `json:"metacritic,omitempty" yaml:"metacritic,omitempty"`
}

// PlatformSlot wraps the platform object the way the API nests it.
type PlatformSlot struct {
	Platform Named `json:"platform" yaml:"platform"`
}

// Named is any API object of which only the name is used.
type Named struct {
	ID   int    `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name"`
}

// PlatformNames returns the platform names in API order.
func (g Game) PlatformNames() []string {
	names := make([]string, 0, len(g.Platforms))
	for _, p := range g.Platforms {
		if p.Platform.Name != "" {
			names = append(names, p.Platform.Name)
		}
	}
	return names
}

// GenreNames returns the genre names in API order.
func (g Game) GenreNames() []string {
	names := make([]string, 0, len(g.Genres))
	for _, genre := range g.Genres {
		if genre.Name != "" {
			names = append(names, genre.Name)
		}
	}
	return names
}

// ReleaseYear returns the year part of Released, or "".
func (g Game) ReleaseYear() string {
	if len(g.Released) >= 4 {
		return g.Released[:4]
	}
	return ""
}

// Label is a one-line description used by pickers and logs.
func (g Game) Label() string {
	var b strings.Builder
	b.WriteString(g.Name)
	if year := g.ReleaseYear(); year != "" {
		b.WriteString(" (" + year + ")")
	}
	if platforms := g.PlatformNames(); len(platforms) > 0 {
		if len(platforms) > 3 {
			platforms = append(platforms[:3:3], "…")
		}
		b.WriteString(" - " + strings.Join(platforms, ", "))
	}
	return b.String()
}

type searchResponse struct {
	Count   int    `json:"count"`
	Results []Game `json:"results"`
}
