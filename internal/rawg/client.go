// Package rawg provides a client for the RAWG video game catalog API.
package rawg

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/gamevault/internal/ratelimit"
)

const (
	defaultBaseURL       = "https://api.rawg.io/api"
	defaultPageSize      = 10
	defaultMaxAttempts   = 3
	defaultRatePerSecond = 5
	serviceName          = "RAWG"
)

var (
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("rawg: API key not configured (set rawg.apikey or RAWG_API_KEY)")
	// ErrNotFound is returned when a game id does not exist.
	ErrNotFound = errors.New("rawg: game not found")
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a RAWG API client.
type Client struct {
	apiKey        string
	baseURL       string
	httpClient    HTTPDoer
	rateLimiter   *ratelimit.Limiter
	pageSize      int
	retryAttempts int
}

// NewClient creates a new RAWG API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		rateLimiter:   ratelimit.New(serviceName, defaultRatePerSecond),
		pageSize:      defaultPageSize,
		retryAttempts: defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithPageSize sets how many search results are requested.
func WithPageSize(size int) Option {
	return func(client *Client) {
		if size > 0 {
			client.pageSize = size
		}
	}
}

// WithRetryAttempts sets the number of attempts for retryable failures.
func WithRetryAttempts(attempts int) Option {
	return func(client *Client) {
		if attempts > 0 {
			client.retryAttempts = attempts
		}
	}
}

// WithRateLimiter sets a custom rate limiter for the client.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}
