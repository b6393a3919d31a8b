package hltb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/gamevault/internal/automation"
	"github.com/lepinkainen/gamevault/internal/ratelimit"
)

const (
	// DefaultConcurrency is the number of batch resolutions in flight.
	DefaultConcurrency = 3
	// MaxConcurrency caps batch resolutions regardless of configuration.
	MaxConcurrency = 5

	defaultRatePerSecond = 2
)

// DefaultStrategyOrder is cheapest first. The direct scrape only runs when an
// id is already known, so it goes before the search engines.
var DefaultStrategyOrder = []string{TagAPI, TagKeyedAPI, TagScrape, TagSearch}

// DefaultTimeouts bound each strategy attempt.
var DefaultTimeouts = map[string]time.Duration{
	TagAPI:      3 * time.Second,
	TagKeyedAPI: 3 * time.Second,
	TagSearch:   5 * time.Second,
	TagScrape:   5 * time.Second,
	TagRendered: 15 * time.Second,
}

// DefaultTimeout returns the bound for a tag, 5s for unknown tags.
func DefaultTimeout(tag string) time.Duration {
	if d, ok := DefaultTimeouts[tag]; ok {
		return d
	}
	return 5 * time.Second
}

// Client resolves titles to completion times. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    HTTPDoer
	rateLimiter   *ratelimit.Limiter
	searchLimiter *ratelimit.Limiter
	engines       []Engine
	order         []string
	timeouts      map[string]time.Duration
	steps         []Step
	renderer      automation.CDPRunner
	registerer    prometheus.Registerer

	memo  *Memo
	hints *IDHints
	chain *Chain
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a resolver with the default strategy chain.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{Timeout: 20 * time.Second},
		rateLimiter:   ratelimit.New("HLTB", defaultRatePerSecond),
		searchLimiter: ratelimit.New("search engines", 1),
		engines:       DefaultEngines,
		order:         DefaultStrategyOrder,
		timeouts:      map[string]time.Duration{},
		hints:         NewIDHints(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.memo == nil {
		client.memo = NewMemo()
	}

	steps := client.steps
	if steps == nil {
		steps = client.defaultSteps()
	}
	client.chain = NewChain(steps...).Instrument(client.registerer)

	return client
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL points the strategies at a different upstream host.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRateLimiter sets the limiter for upstream requests.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}

// WithSearchLimiter sets the limiter for search engine requests.
func WithSearchLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		client.searchLimiter = limiter
	}
}

// WithSearchEngines replaces the engine list used by the search strategy.
func WithSearchEngines(engines ...Engine) Option {
	return func(client *Client) {
		if len(engines) > 0 {
			client.engines = engines
		}
	}
}

// WithStrategies sets the built-in strategies to use, in order, by tag.
func WithStrategies(tags ...string) Option {
	return func(client *Client) {
		if len(tags) > 0 {
			client.order = tags
		}
	}
}

// WithSteps replaces the built-in strategies entirely.
func WithSteps(steps ...Step) Option {
	return func(client *Client) {
		client.steps = steps
	}
}

// WithTimeouts overrides per-tag attempt timeouts.
func WithTimeouts(timeouts map[string]time.Duration) Option {
	return func(client *Client) {
		for tag, d := range timeouts {
			if d > 0 {
				client.timeouts[tag] = d
			}
		}
	}
}

// WithRenderedStrategy appends the headless browser strategy to the chain.
func WithRenderedStrategy(runner automation.CDPRunner) Option {
	return func(client *Client) {
		if runner == nil {
			runner = automation.DefaultCDPRunner{}
		}
		client.renderer = runner
	}
}

// WithMemo shares a memo between clients.
func WithMemo(memo *Memo) Option {
	return func(client *Client) {
		client.memo = memo
	}
}

// WithRegisterer enables attempt metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(client *Client) {
		client.registerer = reg
	}
}

func (c *Client) defaultSteps() []Step {
	up := NewUpstream(c.baseURL, c.httpClient, c.rateLimiter)

	order := c.order
	if c.renderer != nil && !containsTag(order, TagRendered) {
		order = append(append([]string{}, order...), TagRendered)
	}

	steps := make([]Step, 0, len(order))
	for _, tag := range order {
		var s Strategy
		switch tag {
		case TagAPI:
			s = NewAPIStrategy(up)
		case TagKeyedAPI:
			s = NewKeyedAPIStrategy(up)
		case TagScrape:
			s = NewScrapeStrategy(up, c.hints)
		case TagSearch:
			s = NewSearchStrategy(up, c.engines, c.searchLimiter)
		case TagRendered:
			s = NewRenderedStrategy(up, c.renderer)
		default:
			slog.Warn("Ignoring unknown strategy", "strategy", tag)
			continue
		}
		steps = append(steps, Step{Strategy: s, Timeout: c.timeout(tag)})
	}
	return steps
}

func (c *Client) timeout(tag string) time.Duration {
	if d, ok := c.timeouts[tag]; ok {
		return d
	}
	return DefaultTimeout(tag)
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Strategies returns the tags of the configured chain in order.
func (c *Client) Strategies() []string {
	return c.chain.Tags()
}

// Memo returns the session memo.
func (c *Client) Memo() *Memo {
	return c.memo
}

// Resolve returns the completion times for a title. Repeated calls for the
// same normalized title are answered from the session memo. It never fails:
// every problem ends up in an unavailable outcome.
func (c *Client) Resolve(ctx context.Context, title string) (outcome Outcome) {
	defer c.recoverInto(title, &outcome)

	q := NormalizeQuery(title)
	if !q.Valid() {
		return invalidQuery(q)
	}
	return c.memo.GetOrCompute(ctx, q, func(ctx context.Context) Outcome {
		return c.run(ctx, q)
	})
}

// Refresh resolves a title again, ignoring and then replacing the memoized outcome.
func (c *Client) Refresh(ctx context.Context, title string) (outcome Outcome) {
	defer c.recoverInto(title, &outcome)

	q := NormalizeQuery(title)
	if !q.Valid() {
		return invalidQuery(q)
	}
	o := c.run(ctx, q)
	if ctx.Err() == nil {
		c.memo.Set(q, o)
	}
	return o
}

// ResolveAll resolves titles with at most concurrency lookups in flight.
// Outcomes are in input order.
func (c *Client) ResolveAll(ctx context.Context, titles []string, concurrency int) []Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	concurrency = min(concurrency, MaxConcurrency)

	outcomes := make([]Outcome, len(titles))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, title := range titles {
		g.Go(func() error {
			outcomes[i] = c.Resolve(ctx, title)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (c *Client) run(ctx context.Context, q Query) Outcome {
	outcome := c.chain.Run(ctx, q)
	if outcome.Found() {
		c.hints.Remember(q, outcome.Result.ID)
	} else {
		slog.Debug("No completion times", "query", q, "reasons", outcome.Reasons())
	}
	return outcome
}

func (c *Client) recoverInto(title string, outcome *Outcome) {
	if r := recover(); r != nil {
		slog.Error("Resolver panicked", "title", title, "panic", r, "stack", string(debug.Stack()))
		*outcome = Unavailable(Failure{Reason: ReasonParse, Message: fmt.Sprintf("panic: %v", r)})
	}
}

func invalidQuery(q Query) Outcome {
	return Unavailable(Failure{
		Reason:  ReasonInvalidQuery,
		Message: fmt.Sprintf("query %q is shorter than %d characters", q, MinQueryLength),
	})
}
