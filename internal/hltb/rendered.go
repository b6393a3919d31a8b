package hltb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/lepinkainen/gamevault/internal/automation"
)

const (
	renderedLinkTimeout = 10 * time.Second
	firstGameLinkJS     = `(() => { const a = document.querySelector('a[href*="/game/"]'); return a ? a.getAttribute('href') : ""; })()`
)

var gamePathPattern = regexp.MustCompile(`/game/(\d+)`)

// RenderedStrategy drives a headless browser through the upstream's own
// search page, for when plain HTTP clients are being turned away.
type RenderedStrategy struct {
	up     *Upstream
	runner automation.CDPRunner

	// firstLink and pageHTML read values out of the browser tab.
	firstLink func(ctx context.Context) (string, error)
	pageHTML  func(ctx context.Context) (string, error)
}

var _ Strategy = (*RenderedStrategy)(nil)

// NewRenderedStrategy creates the browser-rendered strategy.
func NewRenderedStrategy(up *Upstream, runner automation.CDPRunner) *RenderedStrategy {
	if runner == nil {
		runner = automation.DefaultCDPRunner{}
	}
	s := &RenderedStrategy{up: up, runner: runner}
	s.firstLink = func(ctx context.Context) (string, error) {
		var link string
		err := s.runner.Run(ctx, chromedp.Evaluate(firstGameLinkJS, &link))
		return link, err
	}
	s.pageHTML = func(ctx context.Context) (string, error) {
		var page string
		err := s.runner.Run(ctx,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &page, chromedp.ByQuery),
		)
		return page, err
	}
	return s
}

// Name returns the strategy tag.
func (s *RenderedStrategy) Name() string { return TagRendered }

// Attempt searches in the browser, follows the first game link and parses
// the rendered game page.
func (s *RenderedStrategy) Attempt(ctx context.Context, q Query) (*Result, error) {
	session := automation.NewBrowser(ctx, s.runner, automation.AutomationOptions{
		Headless:  true,
		UserAgent: userAgent,
	})
	defer session.Close()

	headers := make(network.Headers, len(clientHints))
	for name, value := range clientHints {
		headers[name] = value
	}

	searchURL := s.up.BaseURL + "/?q=" + url.QueryEscape(q.String())
	if err := s.runner.Run(session.Ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(searchURL),
	); err != nil {
		return nil, transportFailure(fmt.Errorf("loading search page: %w", err))
	}

	id, err := automation.WaitForLink(ctx, func() (string, error) {
		return s.firstLink(session.Ctx)
	}, gamePathPattern, renderedLinkTimeout)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, Fail(ReasonTimeout, err)
		case errors.Is(err, automation.ErrPollTimeout):
			return nil, Fail(ReasonNotFound, err)
		default:
			return nil, transportFailure(err)
		}
	}

	if err := s.runner.Run(session.Ctx, chromedp.Navigate(s.up.GameURL(id))); err != nil {
		return nil, transportFailure(fmt.Errorf("loading game page: %w", err))
	}
	page, err := s.pageHTML(session.Ctx)
	if err != nil {
		return nil, transportFailure(fmt.Errorf("reading game page: %w", err))
	}

	fields := ParseGamePage(page, s.up.BaseURL)
	if !fields.HasDurations() {
		return nil, Failf(ReasonParse, "no duration rule matched on rendered page %s", id)
	}
	return s.up.resultFromPage(id, q, fields), nil
}
