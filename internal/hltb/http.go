package hltb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lepinkainen/gamevault/internal/ratelimit"
)

const (
	// DefaultBaseURL is the upstream site.
	DefaultBaseURL = "https://howlongtobeat.com"
	// UpstreamDomain is used in site-restricted search engine queries.
	UpstreamDomain = "howlongtobeat.com"

	maxBodyBytes = 4 << 20
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Upstream holds what every strategy needs to reach the upstream site.
type Upstream struct {
	BaseURL string
	HTTP    HTTPDoer
	Limiter *ratelimit.Limiter
}

// NewUpstream creates an Upstream with a trimmed base URL.
func NewUpstream(baseURL string, doer HTTPDoer, limiter *ratelimit.Limiter) *Upstream {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Upstream{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    doer,
		Limiter: limiter,
	}
}

// GameURL is the canonical page for a game id.
func (u *Upstream) GameURL(id string) string {
	return u.BaseURL + "/game/" + id
}

// The upstream rejects requests that do not look like they come from a browser.
// Accept-Encoding is left to the transport so responses are decompressed transparently.
func setBrowserHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	for name, value := range clientHints {
		req.Header.Set(name, value)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
}

// clientHints are sent by the HTTP strategies and the headless browser alike.
var clientHints = map[string]string{
	"Accept-Language":    "en-US,en;q=0.9",
	"Sec-Ch-Ua":          `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"Sec-Ch-Ua-Mobile":   "?0",
	"Sec-Ch-Ua-Platform": `"Windows"`,
}

const (
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptJSON = "application/json, text/plain, */*"
)

// response is a fully read upstream response.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// blocked reports the statuses the upstream uses to turn automated clients away.
func (r response) blocked() bool {
	return r.status == http.StatusForbidden || r.status == http.StatusTooManyRequests
}

func (r response) snippet() string {
	s := strings.TrimSpace(string(r.body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// do waits for the limiter, sends the request and reads the body. Any error
// it returns is already a classified StrategyError.
func do(ctx context.Context, doer HTTPDoer, limiter *ratelimit.Limiter, req *http.Request) (response, error) {
	if err := limiter.Wait(ctx); err != nil {
		return response{}, Fail(ReasonTimeout, err)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return response{}, transportFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, transportFailure(fmt.Errorf("reading %s: %w", req.URL.Redacted(), err))
	}

	return response{status: resp.StatusCode, body: body}, nil
}

// getPage fetches an HTML document with browser-like headers.
func getPage(ctx context.Context, doer HTTPDoer, limiter *ratelimit.Limiter, pageURL string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return response{}, Fail(ReasonTransport, fmt.Errorf("creating request: %w", err))
	}
	setBrowserHeaders(req, acceptHTML)
	return do(ctx, doer, limiter, req)
}
