package hltb

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/gamevault/internal/ratelimit"
)

const witcherSearchJSON = `{"data":[{"game_id":10270,"game_name":"The Witcher 3: Wild Hunt","comp_main":185400,"comp_plus":370800,"comp_100":622800,"game_image":"10270_The_Witcher_3.jpg"},{"game_id":1,"game_name":"Other","comp_main":3600}]}`

// fakeUpstream serves every endpoint the strategies talk to and counts
// requests per path.
type fakeUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu    sync.Mutex
	calls map[string]int

	// Handlers can be swapped per test.
	Search      http.HandlerFunc
	KeyedSearch http.HandlerFunc
	Bootstrap   http.HandlerFunc
	Script      http.HandlerFunc
	Game        http.HandlerFunc
	Engine      http.HandlerFunc
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	f := &fakeUpstream{t: t, calls: make(map[string]int)}
	f.Search = jsonHandler(witcherSearchJSON)
	f.KeyedSearch = jsonHandler(witcherSearchJSON)
	f.Bootstrap = htmlHandler(`<html><head><script src="/_next/static/chunks/webpack-1.js"></script><script src="/_next/static/chunks/pages/_app-abc123.js"></script></head><body></body></html>`)
	f.Script = textHandler(`var a=1;fetch("/api/search/".concat("ab12").concat("cd34"),{method:"POST"})`)
	f.Game = fixtureHandler(t, "game_embedded.html")
	f.Engine = fixtureHandler(t, "search_ddg.html")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", f.count("search", func(w http.ResponseWriter, r *http.Request) { f.Search(w, r) }))
	mux.HandleFunc("POST /api/search/{key}", f.count("keyed", func(w http.ResponseWriter, r *http.Request) { f.KeyedSearch(w, r) }))
	mux.HandleFunc("GET /{$}", f.count("bootstrap", func(w http.ResponseWriter, r *http.Request) { f.Bootstrap(w, r) }))
	mux.HandleFunc("GET /_next/static/chunks/", f.count("script", func(w http.ResponseWriter, r *http.Request) { f.Script(w, r) }))
	mux.HandleFunc("GET /game/{id}", f.count("game", func(w http.ResponseWriter, r *http.Request) { f.Game(w, r) }))
	mux.HandleFunc("GET /engine", f.count("engine", func(w http.ResponseWriter, r *http.Request) { f.Engine(w, r) }))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) count(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[name]++
		f.mu.Unlock()
		h(w, r)
	}
}

func (f *fakeUpstream) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeUpstream) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeUpstream) URL() string { return f.server.URL }

func (f *fakeUpstream) Upstream() *Upstream {
	return NewUpstream(f.server.URL, f.server.Client(), nil)
}

func (f *fakeUpstream) Engines() []Engine {
	return []Engine{{Name: "fake", URL: f.server.URL + "/engine?q=%s"}}
}

// client builds a resolver pointed at the fake with no throttling.
func (f *fakeUpstream) client(opts ...Option) *Client {
	base := []Option{
		WithBaseURL(f.server.URL),
		WithHTTPClient(f.server.Client()),
		WithRateLimiter(ratelimit.New("test", 1000)),
		WithSearchLimiter(nil),
		WithSearchEngines(f.Engines()...),
	}
	return NewClient(append(base, opts...)...)
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}
}

func textHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte(body))
	}
}

func fixtureHandler(t *testing.T, name string) http.HandlerFunc {
	body := readFixture(t, name)
	return htmlHandler(body)
}

func statusHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}
}

func slowHandler(delay time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		next(w, r)
	}
}

func decodeSearchRequest(t *testing.T, r *http.Request) searchRequest {
	t.Helper()
	var req searchRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}
