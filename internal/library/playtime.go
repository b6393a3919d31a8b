package library

import (
	"time"

	"github.com/lepinkainen/gamevault/internal/hltb"
)

// ApplyPlaytime merges a resolved completion-time result into g. When the
// result points at the same upstream game as before, durations it lacks keep
// their previous value; a different upstream game replaces all three. The
// cover is only filled when the game has none. It reports whether anything
// changed.
func ApplyPlaytime(g *Game, r *hltb.Result, now time.Time) bool {
	if g == nil || r == nil {
		return false
	}

	sameGame := r.SourceURL == "" || g.PlaytimeURL == r.SourceURL

	changed := false
	merge := func(dst **float64, src *float64) {
		if src == nil {
			if sameGame || *dst == nil {
				return
			}
			*dst = nil
			changed = true
			return
		}
		if *dst != nil && **dst == *src {
			return
		}
		v := *src
		*dst = &v
		changed = true
	}
	merge(&g.MainStory, r.MainStory)
	merge(&g.MainExtra, r.MainExtra)
	merge(&g.Completionist, r.Completionist)

	if r.SourceURL != "" && g.PlaytimeURL != r.SourceURL {
		g.PlaytimeURL = r.SourceURL
		changed = true
	}
	if g.Cover == "" && r.ImageURL != "" {
		g.Cover = r.ImageURL
		changed = true
	}

	if changed {
		g.UpdatedAt = now
	}
	return changed
}
