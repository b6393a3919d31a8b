package hltb

import (
	"encoding/json"
	"html"
	"maps"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SecondsThreshold is the magnitude above which a raw duration is taken to
// be in seconds rather than hours.
const SecondsThreshold = 500

// ToHours is the duration conversion step applied to every raw upstream value.
// Values above SecondsThreshold are seconds and become hours rounded to one
// decimal place; smaller values are already hours. Zero, negative and NaN
// values are absent.
func ToHours(raw float64) *float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return nil
	}

	h := raw
	if raw > SecondsThreshold {
		h = raw / 3600
	}
	h = math.Round(h*10) / 10
	if h <= 0 {
		return nil
	}
	return hours(h)
}

var halfHoursPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?\s*(½)?`)

// ParseHalfHours parses an hour count like "54", "54.5" or "54½".
func ParseHalfHours(s string) (float64, bool) {
	m := halfHoursPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}

	whole, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		frac, err := strconv.ParseFloat("0."+m[2], 64)
		if err == nil {
			whole += frac
		}
	}
	if m[3] != "" {
		whole += 0.5
	}
	return whole, true
}

// Document is a fetched upstream page prepared for the extraction rules.
type Document struct {
	raw      string
	text     string
	embedded map[string]any
}

var (
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern      = regexp.MustCompile(`\s+`)
	nextDataPattern   = regexp.MustCompile(`(?is)<script[^>]*id="__NEXT_DATA__"[^>]*>(.*?)</script>`)
	titleTagPattern   = regexp.MustCompile(`(?is)<title>\s*([^<]+?)\s*(?:-|–|—|\|)\s*How\s*Long\s*to\s*Beat\s*</title>`)
	gameImagePattern  = regexp.MustCompile(`(?i)src="([^"]*games/[^"]*\.(?:jpe?g|png|webp)[^"]*)"`)
	embeddedDurations = []string{"comp_main", "comp_plus", "comp_100"}
)

// NewDocument strips markup and decodes any embedded data blob once so the
// individual rules stay cheap.
func NewDocument(raw string) *Document {
	text := tagPattern.ReplaceAllString(raw, " ")
	text = html.UnescapeString(text)
	text = spacePattern.ReplaceAllString(text, " ")

	return &Document{
		raw:      raw,
		text:     text,
		embedded: embeddedGame(raw),
	}
}

// embeddedGame returns the first object in the page's embedded JSON payload
// that carries duration fields.
func embeddedGame(raw string) map[string]any {
	m := nextDataPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	var payload any
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &payload); err != nil {
		return nil
	}
	return findDurationObject(payload)
}

func findDurationObject(v any) map[string]any {
	switch node := v.(type) {
	case map[string]any:
		for _, key := range embeddedDurations {
			if _, ok := node[key]; ok {
				return node
			}
		}
		// Sorted keys keep the pick stable across runs.
		for _, key := range slices.Sorted(maps.Keys(node)) {
			if found := findDurationObject(node[key]); found != nil {
				return found
			}
		}
	case []any:
		for _, child := range node {
			if found := findDurationObject(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Rule is a single named extraction rule for one duration field. A rule that
// finds the field reports ok even when the value is zero or a placeholder;
// that value is then the field's definitive "absent".
type Rule struct {
	Name    string
	Extract func(doc *Document) (float64, bool)
}

// RuleSet is an ordered list of rules; the first rule yielding a value wins.
type RuleSet []Rule

// First runs the rules in order and returns the value and name of the first
// rule that found the field. The value is nil when that rule found it empty.
func (rs RuleSet) First(doc *Document) (*float64, string) {
	for _, rule := range rs {
		v, ok := rule.Extract(doc)
		if !ok {
			continue
		}
		return ToHours(v), rule.Name
	}
	return nil, ""
}

func embeddedRule(key string) Rule {
	return Rule{
		Name: "embedded_json",
		Extract: func(doc *Document) (float64, bool) {
			if doc.embedded == nil {
				return 0, false
			}
			return numberValue(doc.embedded[key])
		},
	}
}

var (
	// labelStopPattern matches any duration label; a label's value never
	// extends past the next one.
	labelStopPattern  = regexp.MustCompile(`(?i)\b(?:Main\s+Story|Main\s*\+\s*Extras?|Completionists?|All\s+Styles|Solo|Co-?Op|Vs)\b`)
	labelValuePattern = regexp.MustCompile(`(?i)^[^0-9]*?(\d+(?:\.\d+)?\s*½?)\s*(?:Hours?|Hrs?|h)\b`)
	placeholderMark   = regexp.MustCompile(`^[^0-9]*?(?:--|–|—|N/A)`)
)

const labelValueWindow = 80

func labelRule(label string) Rule {
	pattern := regexp.MustCompile(`(?i)` + label)
	return Rule{
		Name: "label_text",
		Extract: func(doc *Document) (float64, bool) {
			for _, loc := range pattern.FindAllStringIndex(doc.text, -1) {
				if v, ok := labelValue(doc.text[loc[1]:]); ok {
					return v, true
				}
			}
			return 0, false
		},
	}
}

// labelValue reads the value following a label: an hour count, or zero for
// the "--" placeholder the upstream shows for metrics without data.
func labelValue(rest string) (float64, bool) {
	if len(rest) > labelValueWindow {
		cut := labelValueWindow
		for cut < len(rest) && !utf8.RuneStart(rest[cut]) {
			cut++
		}
		rest = rest[:cut]
	}
	if loc := labelStopPattern.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}

	if m := labelValuePattern.FindStringSubmatch(rest); m != nil {
		return ParseHalfHours(m[1])
	}
	if placeholderMark.MatchString(rest) {
		return 0, true
	}
	return 0, false
}

func rawNumericRule(key string) Rule {
	pattern := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"?(\d+(?:\.\d+)?)`)
	return Rule{
		Name: "raw_numeric",
		Extract: func(doc *Document) (float64, bool) {
			m := pattern.FindStringSubmatch(doc.raw)
			if m == nil {
				return 0, false
			}
			v, err := strconv.ParseFloat(m[1], 64)
			return v, err == nil
		},
	}
}

// Duration rule sets, most trustworthy first.
var (
	MainStoryRules = RuleSet{
		embeddedRule("comp_main"),
		labelRule(`Main\s+Story`),
		rawNumericRule("comp_main"),
	}
	MainExtraRules = RuleSet{
		embeddedRule("comp_plus"),
		labelRule(`Main\s*\+\s*Extras?`),
		rawNumericRule("comp_plus"),
	}
	CompletionistRules = RuleSet{
		embeddedRule("comp_100"),
		labelRule(`Completionists?`),
		rawNumericRule("comp_100"),
	}
)

// NameRule extracts a canonical game name from a page.
type NameRule struct {
	Name    string
	Extract func(doc *Document) (string, bool)
}

// NameRules is the ordered name extraction chain.
var NameRules = []NameRule{
	{Name: "title_tag", Extract: titleTagName},
	{Name: "header_element", Extract: headerName},
	{Name: "embedded_json", Extract: embeddedName},
}

func titleTagName(doc *Document) (string, bool) {
	m := titleTagPattern.FindStringSubmatch(doc.raw)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(html.UnescapeString(m[1]))
	return name, name != ""
}

func headerName(doc *Document) (string, bool) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.raw))
	if err != nil {
		return "", false
	}

	for _, selector := range []string{"[class*='profile_header']", "h1"} {
		text := strings.TrimSpace(parsed.Find(selector).First().Text())
		if text == "" {
			continue
		}
		// Headers sometimes wrap a subtitle line below the name.
		if idx := strings.IndexByte(text, '\n'); idx > 0 {
			text = strings.TrimSpace(text[:idx])
		}
		return text, true
	}
	return "", false
}

func embeddedName(doc *Document) (string, bool) {
	if doc.embedded == nil {
		return "", false
	}
	name, ok := doc.embedded["game_name"].(string)
	name = strings.TrimSpace(name)
	return name, ok && name != ""
}

// PageFields is the structured record extracted from a game page.
type PageFields struct {
	ID            string
	Name          string
	MainStory     *float64
	MainExtra     *float64
	Completionist *float64
	ImageURL      string
}

// HasDurations reports whether any duration was extracted.
func (p PageFields) HasDurations() bool {
	return p.MainStory != nil || p.MainExtra != nil || p.Completionist != nil
}

// ParseGamePage runs every extraction chain over a game page. It never fails;
// missing values are left empty.
func ParseGamePage(raw, baseURL string) PageFields {
	doc := NewDocument(raw)

	var fields PageFields
	fields.MainStory, _ = MainStoryRules.First(doc)
	fields.MainExtra, _ = MainExtraRules.First(doc)
	fields.Completionist, _ = CompletionistRules.First(doc)

	for _, rule := range NameRules {
		if name, ok := rule.Extract(doc); ok {
			fields.Name = name
			break
		}
	}

	if doc.embedded != nil {
		if id, ok := numberValue(doc.embedded["game_id"]); ok && id > 0 {
			fields.ID = strconv.FormatInt(int64(id), 10)
		}
	}

	if m := gameImagePattern.FindStringSubmatch(raw); m != nil {
		fields.ImageURL = absoluteURL(baseURL, html.UnescapeString(m[1]))
	}

	return fields
}

func absoluteURL(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(ref, "/")
}

var gameLinkPattern = regexp.MustCompile(`howlongtobeat\.com/game/(\d+)`)

// ExtractGameID finds the first upstream game identifier in a search engine
// results page. Result anchors are checked before the raw body so redirect
// wrappers (uddg=, u=) are decoded.
func ExtractGameID(page string) (string, bool) {
	if parsed, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		var id string
		parsed.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if m := gameLinkPattern.FindStringSubmatch(unescapeLink(href)); m != nil {
				id = m[1]
				return false
			}
			return true
		})
		if id != "" {
			return id, true
		}
	}

	if m := gameLinkPattern.FindStringSubmatch(unescapeLink(page)); m != nil {
		return m[1], true
	}
	return "", false
}

func unescapeLink(s string) string {
	s = html.UnescapeString(s)
	// Engines percent-encode the target URL inside their redirect links.
	for range 2 {
		decoded, err := url.QueryUnescape(s)
		if err != nil || decoded == s {
			break
		}
		s = decoded
	}
	return s
}
