// Package library keeps the user's game records and merges completion-time
// results into them.
package library

import (
	"fmt"
	"strings"
	"time"
)

// Status is where a game sits in the user's backlog.
type Status string

const (
	StatusBacklog  Status = "backlog"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusDropped  Status = "dropped"
)

// Statuses lists the valid statuses in display order.
var Statuses = []Status{StatusBacklog, StatusPlaying, StatusFinished, StatusDropped}

// ParseStatus validates a status name. Empty means backlog.
func ParseStatus(s string) (Status, error) {
	if strings.TrimSpace(s) == "" {
		return StatusBacklog, nil
	}
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Statuses {
		if status == valid {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid status %q (valid: backlog, playing, finished, dropped)", s)
}

// Game is a single library entry.
type Game struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Platform    string    `json:"platform" yaml:"platform"`
	Store       string    `json:"store" yaml:"store"`
	Status      Status    `json:"status" yaml:"status"`
	HoursPlayed float64   `json:"hours_played" yaml:"hours_played"`
	Cover       string    `json:"cover,omitempty" yaml:"cover,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Rating      int       `json:"rating,omitempty" yaml:"rating,omitempty"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	ReleaseYear string    `json:"release_year,omitempty" yaml:"release_year,omitempty"`
	AddedAt     time.Time `json:"added_at" yaml:"added_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`

	// Completion-time enrichment, in hours
	MainStory     *float64 `json:"main_story,omitempty" yaml:"main_story,omitempty"`
	MainExtra     *float64 `json:"main_extra,omitempty" yaml:"main_extra,omitempty"`
	Completionist *float64 `json:"completionist,omitempty" yaml:"completionist,omitempty"`
	PlaytimeURL   string   `json:"playtime_url,omitempty" yaml:"playtime_url,omitempty"`

	// Catalog data
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Metacritic   *int   `json:"metacritic,omitempty" yaml:"metacritic,omitempty"`
	RawgID       int    `json:"rawg_id,omitempty" yaml:"rawg_id,omitempty"`
	RawgPlaytime int    `json:"rawg_playtime,omitempty" yaml:"rawg_playtime,omitempty"`
}

// HasPlaytime reports whether any completion estimate is stored.
func (g *Game) HasPlaytime() bool {
	return g.MainStory != nil || g.MainExtra != nil || g.Completionist != nil
}
