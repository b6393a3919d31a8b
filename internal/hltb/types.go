// Package hltb resolves completion-time estimates ("how long to beat") for a
// free-text game title by trying several independent upstream strategies in
// priority order.
package hltb

import (
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the shortest normalized title (in runes) that is sent upstream.
const MinQueryLength = 2

// Query is a normalized game title.
type Query string

// NormalizeQuery trims the title and collapses internal whitespace runs.
func NormalizeQuery(title string) Query {
	return Query(strings.Join(strings.Fields(title), " "))
}

// Terms splits the query into the search terms sent in upstream payloads.
func (q Query) Terms() []string {
	return strings.Fields(string(q))
}

// Valid reports whether the query is long enough to be worth resolving.
func (q Query) Valid() bool {
	return utf8.RuneCountInString(string(q)) >= MinQueryLength
}

func (q Query) String() string {
	return string(q)
}

// Result is a successful resolution produced by exactly one strategy.
// Duration fields are hours with one decimal place; nil means the upstream
// had no data for that metric.
type Result struct {
	// ID is the upstream identifier of the matched game
	ID string `json:"id" yaml:"id"`
	// Name is the upstream title, which may differ from the query
	Name string `json:"name" yaml:"name"`
	// MainStory is the main story estimate in hours
	MainStory *float64 `json:"main_story,omitempty" yaml:"main_story,omitempty"`
	// MainExtra is the main story plus extras estimate in hours
	MainExtra *float64 `json:"main_extra,omitempty" yaml:"main_extra,omitempty"`
	// Completionist is the 100% estimate in hours
	Completionist *float64 `json:"completionist,omitempty" yaml:"completionist,omitempty"`
	// ImageURL is the upstream cover image, if any
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	// SourceURL is the attribution link for the matched game
	SourceURL string `json:"source_url" yaml:"source_url"`
	// Strategy is the tag of the strategy that produced this result
	Strategy string `json:"strategy" yaml:"strategy"`
}

// HasDurations reports whether at least one estimate is present.
func (r *Result) HasDurations() bool {
	return r.MainStory != nil || r.MainExtra != nil || r.Completionist != nil
}

// Outcome is either a Result or an unavailable marker with the ordered
// per-strategy failures.
type Outcome struct {
	Result   *Result   `json:"result,omitempty" yaml:"result,omitempty"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Found reports whether the outcome carries a result.
func (o Outcome) Found() bool {
	return o.Result != nil
}

// Unavailable builds the negative outcome.
func Unavailable(failures ...Failure) Outcome {
	return Outcome{Failures: failures}
}

// Failure records why a single strategy did not produce a result.
type Failure struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	Reason   Reason `json:"reason" yaml:"reason"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Reasons returns the failure reasons in chain order.
func (o Outcome) Reasons() []Reason {
	reasons := make([]Reason, len(o.Failures))
	for i, f := range o.Failures {
		reasons[i] = f.Reason
	}
	return reasons
}

func hours(v float64) *float64 {
	return &v
}
