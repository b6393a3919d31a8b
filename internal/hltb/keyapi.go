package hltb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

var (
	scriptSrcPattern = regexp.MustCompile(`<script[^>]+src="([^"]+\.js[^"]*)"`)
	concatKeyPattern = regexp.MustCompile(`"/api/(?:search|find|lookup|seek)/"((?:\.concat\("[A-Za-z0-9]+"\))+)`)
	concatPartRegex  = regexp.MustCompile(`\.concat\("([A-Za-z0-9]+)"\)`)

	// Known ways the search key has been embedded in the site bundle, newest first.
	keyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"/api/(?:search|find|lookup|seek)/"\s*\+\s*"([A-Za-z0-9]+)"`),
		regexp.MustCompile(`fetch\(\s*"/api/(?:search|find|lookup|seek)/([A-Za-z0-9]+)"`),
		regexp.MustCompile(`searchKey\s*[:=]\s*"([A-Za-z0-9]+)"`),
	}

	errNoScripts = errors.New("bootstrap document references no scripts")
	errNoKey     = errors.New("no search key found in site scripts")
)

// ExtractSearchKey tries every known embedding pattern against a script body.
// The first pattern that matches wins.
func ExtractSearchKey(script string) (string, bool) {
	if m := concatKeyPattern.FindStringSubmatch(script); m != nil {
		var key strings.Builder
		for _, part := range concatPartRegex.FindAllStringSubmatch(m[1], -1) {
			key.WriteString(part[1])
		}
		if key.Len() > 0 {
			return key.String(), true
		}
	}

	for _, pattern := range keyPatterns {
		if m := pattern.FindStringSubmatch(script); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// scriptURLs lists the scripts referenced by the bootstrap page, app bundles first.
func scriptURLs(baseURL, page string) []string {
	var preferred, rest []string
	for _, m := range scriptSrcPattern.FindAllStringSubmatch(page, -1) {
		src := absoluteURL(baseURL, m[1])
		switch {
		case strings.Contains(src, "_app-"):
			preferred = append(preferred, src)
		case strings.Contains(src, "/_next/"):
			rest = append(rest, src)
		}
	}
	return append(preferred, rest...)
}

// KeyedAPIStrategy discovers the ephemeral search key from the site's
// scripts and then calls the key-scoped search endpoint.
type KeyedAPIStrategy struct {
	up  *Upstream
	mu  sync.Mutex
	key string
}

var _ Strategy = (*KeyedAPIStrategy)(nil)

// NewKeyedAPIStrategy creates the key-discovery strategy.
func NewKeyedAPIStrategy(up *Upstream) *KeyedAPIStrategy {
	return &KeyedAPIStrategy{up: up}
}

// Name returns the strategy tag.
func (s *KeyedAPIStrategy) Name() string { return TagKeyedAPI }

// Attempt discovers (or reuses) the key and performs the keyed search. A key
// that gets rejected is rediscovered once.
func (s *KeyedAPIStrategy) Attempt(ctx context.Context, q Query) (*Result, error) {
	key, fresh, err := s.searchKey(ctx, false)
	if err != nil {
		return nil, err
	}

	result, err := s.up.postSearch(ctx, s.up.BaseURL+"/api/search/"+key, q)
	if err == nil || fresh || FailureReason(err) != ReasonBlocked {
		return result, err
	}

	slog.Debug("Cached search key rejected, rediscovering", "query", q)
	key, _, err = s.searchKey(ctx, true)
	if err != nil {
		return nil, err
	}
	return s.up.postSearch(ctx, s.up.BaseURL+"/api/search/"+key, q)
}

// searchKey returns the current key and whether it was discovered by this call.
func (s *KeyedAPIStrategy) searchKey(ctx context.Context, force bool) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != "" && !force {
		return s.key, false, nil
	}

	key, err := s.discover(ctx)
	if err != nil {
		s.key = ""
		// Key discovery failures are reported as blocked, separate from the search step.
		if FailureReason(err) == ReasonTimeout {
			return "", false, err
		}
		return "", false, Fail(ReasonBlocked, fmt.Errorf("key discovery: %w", err))
	}

	s.key = key
	slog.Debug("Discovered search key", "key", key)
	return key, true, nil
}

func (s *KeyedAPIStrategy) discover(ctx context.Context) (string, error) {
	resp, err := getPage(ctx, s.up.HTTP, s.up.Limiter, s.up.BaseURL+"/")
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", fmt.Errorf("bootstrap document returned status %d", resp.status)
	}

	scripts := scriptURLs(s.up.BaseURL, string(resp.body))
	if len(scripts) == 0 {
		return "", errNoScripts
	}

	for _, src := range scripts {
		script, err := getPage(ctx, s.up.HTTP, s.up.Limiter, src)
		if err != nil {
			if FailureReason(err) == ReasonTimeout {
				return "", err
			}
			slog.Debug("Failed to fetch site script", "url", src, "error", err)
			continue
		}
		if !script.ok() {
			continue
		}
		if key, ok := ExtractSearchKey(string(script.body)); ok {
			return key, nil
		}
	}

	return "", errNoKey
}
