package rawg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gverrors "github.com/lepinkainen/gamevault/internal/errors"
)

// statusError is a non-2xx response that is not an access or rate limit problem.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rawg: unexpected status %d: %s", e.status, e.body)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + query.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		err := c.doJSONRequest(ctx, endpoint, target)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == c.retryAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}
	return lastErr
}

func (c *Client) doJSONRequest(ctx context.Context, endpoint string, target any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return gverrors.NewAPIAccessError(serviceName, resp.StatusCode, apiErrorMessage(resp.Body))
	case resp.StatusCode == http.StatusTooManyRequests:
		return gverrors.NewRateLimitErrorWithRetry("rawg: rate limit exceeded", retryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("rawg: decoding response: %w", err)
	}
	return nil
}

func apiErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 512))
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(raw))
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

func isRetryable(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.status >= 500
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Network errors (connection resets etc.)
		if strings.Contains(urlErr.Error(), "connection") {
			return true
		}
	}
	return false
}

var backoffBase = time.Second

func backoffDelay(attempt int) time.Duration {
	// exponential backoff capped at 10 seconds
	delay := time.Duration(1<<uint(attempt-1)) * backoffBase
	if delay > 10*time.Second {
		return 10 * time.Second
	}
	return delay
}
