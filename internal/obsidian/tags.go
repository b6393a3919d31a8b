package obsidian

import (
	"regexp"
	"slices"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// NormalizeTag turns free text into an Obsidian tag: no leading #, spaces
// become hyphens, & becomes "and", "/" is kept for nesting. Case is kept.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return ""
	}

	tag = strings.ReplaceAll(tag, "&", "and")
	tag = strings.ReplaceAll(tag, "#", "")
	tag = whitespaceRun.ReplaceAllString(tag, "-")
	tag = hyphenRun.ReplaceAllString(tag, "-")
	return strings.Trim(tag, "-")
}

// TagSet collects normalized, deduplicated tags.
type TagSet struct {
	tags map[string]struct{}
}

// NewTagSet creates a TagSet holding tags.
func NewTagSet(tags ...string) *TagSet {
	ts := &TagSet{tags: make(map[string]struct{})}
	for _, t := range tags {
		ts.Add(t)
	}
	return ts
}

// Add normalizes and adds a tag; empty results are dropped.
func (ts *TagSet) Add(tag string) {
	if n := NormalizeTag(tag); n != "" {
		ts.tags[n] = struct{}{}
	}
}

// AddIf adds tag when condition holds.
func (ts *TagSet) AddIf(condition bool, tag string) {
	if condition {
		ts.Add(tag)
	}
}

// Sorted returns the tags in sorted order.
func (ts *TagSet) Sorted() []string {
	out := make([]string, 0, len(ts.tags))
	for t := range ts.tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// TagsFromAny extracts non-empty strings from a YAML list value.
func TagsFromAny(val any) []string {
	out := []string{}
	switch v := val.(type) {
	case []string:
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
