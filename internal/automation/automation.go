// Package automation wraps chromedp for pages that only render their data
// inside a real browser.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/chromedp/chromedp"
)

// CDPRunner abstracts the chromedp entry points so browser flows can be tested
// without launching Chrome.
type CDPRunner interface {
	NewExecAllocator(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc)
	NewContext(parent context.Context, opts ...chromedp.ContextOption) (context.Context, context.CancelFunc)
	Run(ctx context.Context, actions ...chromedp.Action) error
}

// DefaultCDPRunner calls chromedp directly.
type DefaultCDPRunner struct{}

// NewExecAllocator creates a Chrome process allocator.
func (DefaultCDPRunner) NewExecAllocator(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc) {
	return chromedp.NewExecAllocator(ctx, opts...)
}

// NewContext creates a browser tab context.
func (DefaultCDPRunner) NewContext(parent context.Context, opts ...chromedp.ContextOption) (context.Context, context.CancelFunc) {
	return chromedp.NewContext(parent, opts...)
}

// Run executes actions in the browser context.
func (DefaultCDPRunner) Run(ctx context.Context, actions ...chromedp.Action) error {
	return chromedp.Run(ctx, actions...)
}

// AutomationOptions holds common configuration for browser automation
type AutomationOptions struct {
	Headless  bool
	UserAgent string
}

// BuildExecAllocatorOptions returns the Chrome flags used for every session.
func BuildExecAllocatorOptions(opts AutomationOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	return allocOpts
}

// BrowserSession is a browser tab context plus the cleanup for its process.
type BrowserSession struct {
	Ctx     context.Context
	cleanup func()
}

// NewBrowser starts a browser bound to ctx. Cancelling ctx tears it down.
func NewBrowser(ctx context.Context, runner CDPRunner, opts AutomationOptions) *BrowserSession {
	allocCtx, cancelAlloc := runner.NewExecAllocator(ctx, BuildExecAllocatorOptions(opts)...)
	browserCtx, cancelBrowser := runner.NewContext(allocCtx)

	return &BrowserSession{
		Ctx: browserCtx,
		cleanup: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}
}

// Close cleans up the browser session.
func (s *BrowserSession) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// ErrPollTimeout is returned by PollWithTimeout when the condition never held.
var ErrPollTimeout = errors.New("condition not met before deadline")

// PollWithTimeout polls a condition function at regular intervals until it succeeds, times out, or context is canceled.
// The checkFunc returns (result, found, error). If found is true, polling stops and result is returned.
// If checkFunc returns an error, polling stops and the error is returned.
// The description is used in timeout error messages.
func PollWithTimeout[T any](ctx context.Context, interval, timeout time.Duration, description string, checkFunc func() (T, bool, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tries := 0
	for {
		result, found, err := checkFunc()
		if err != nil {
			return zero, err
		}
		if found {
			return result, nil
		}

		tries++
		if tries%5 == 0 {
			slog.Debug("Polling", "description", description, "tries", tries)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("polling canceled for %s: %w", description, ctx.Err())
		case <-ticker.C:
			if time.Now().After(deadline) {
				return zero, fmt.Errorf("timeout waiting for %s: %w", description, ErrPollTimeout)
			}
		}
	}
}

// WaitForLink polls getHref until it returns a value matching pattern and
// returns the first submatch, or the whole match when the pattern has no groups.
func WaitForLink(ctx context.Context, getHref func() (string, error), pattern *regexp.Regexp, timeout time.Duration) (string, error) {
	return PollWithTimeout(ctx, 250*time.Millisecond, timeout, "link matching "+pattern.String(), func() (string, bool, error) {
		href, err := getHref()
		if err != nil {
			return "", false, fmt.Errorf("failed to read link: %w", err)
		}
		m := pattern.FindStringSubmatch(href)
		if m == nil {
			return "", false, nil
		}
		if len(m) > 1 {
			return m[1], true, nil
		}
		return m[0], true, nil
	})
}
