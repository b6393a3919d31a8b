// Package resolve implements `gamevault resolve`, a single completion-time lookup.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lepinkainen/gamevault/internal/cmdutil"
	"github.com/lepinkainen/gamevault/internal/hltb"
)

// Resolver is the part of hltb.Client the command uses.
type Resolver interface {
	Resolve(ctx context.Context, title string) hltb.Outcome
	Refresh(ctx context.Context, title string) hltb.Outcome
}

var newResolver = func(reg prometheus.Registerer) Resolver {
	return hltb.NewClientFromConfig(reg)
}

// Options for a single lookup.
type Options struct {
	Title   string
	Refresh bool
	Format  cmdutil.Format
	// MetricsFile receives the attempt metrics in text exposition format
	MetricsFile string
}

// Run resolves one title and prints the outcome. An unavailable outcome is
// printed, not returned as an error.
func Run(ctx context.Context, opts Options, w io.Writer) error {
	if strings.TrimSpace(opts.Title) == "" {
		return errors.New("a game title is required")
	}

	registry := prometheus.NewRegistry()
	resolver := newResolver(registry)

	var outcome hltb.Outcome
	if opts.Refresh {
		outcome = resolver.Refresh(ctx, opts.Title)
	} else {
		outcome = resolver.Resolve(ctx, opts.Title)
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, registry); err != nil {
			slog.Warn("Failed to write metrics", "file", opts.MetricsFile, "error", err)
		}
	}

	return cmdutil.Write(w, opts.Format, outcome, func(w io.Writer) error {
		return writeText(w, opts.Title, outcome)
	})
}

func writeText(w io.Writer, title string, outcome hltb.Outcome) error {
	var b strings.Builder
	if outcome.Found() {
		r := outcome.Result
		fmt.Fprintf(&b, "%s\n", r.Name)
		fmt.Fprintf(&b, "  Main Story:     %s\n", cmdutil.Hours(r.MainStory))
		fmt.Fprintf(&b, "  Main + Extras:  %s\n", cmdutil.Hours(r.MainExtra))
		fmt.Fprintf(&b, "  Completionist:  %s\n", cmdutil.Hours(r.Completionist))
		fmt.Fprintf(&b, "  Source:         %s (via %s)\n", r.SourceURL, r.Strategy)
	} else {
		fmt.Fprintf(&b, "No completion times found for %q\n", title)
		for _, f := range outcome.Failures {
			strategy := f.Strategy
			if strategy == "" {
				strategy = "query"
			}
			fmt.Fprintf(&b, "  %-10s %s\n", strategy+":", f.Reason)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
