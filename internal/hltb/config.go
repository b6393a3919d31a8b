package hltb

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/lepinkainen/gamevault/internal/automation"
	"github.com/lepinkainen/gamevault/internal/config"
)

// NewClientFromConfig builds a Client from the hltb.* configuration keys.
// Extra options are applied after the configured ones.
func NewClientFromConfig(reg prometheus.Registerer, extra ...Option) *Client {
	opts := []Option{
		WithBaseURL(viper.GetString("hltb.baseurl")),
		WithTimeouts(config.Durations("hltb.timeouts")),
		WithRegisterer(reg),
	}

	if tags := config.StringList("hltb.strategies"); len(tags) > 0 {
		opts = append(opts, WithStrategies(tags...))
	}

	var engines []Engine
	for _, name := range config.StringList("hltb.engines") {
		engine, ok := EngineByName(name)
		if !ok {
			slog.Warn("Ignoring unknown search engine", "engine", name)
			continue
		}
		engines = append(engines, engine)
	}
	opts = append(opts, WithSearchEngines(engines...))

	if viper.GetBool("hltb.rendered.enabled") {
		opts = append(opts, WithRenderedStrategy(automation.DefaultCDPRunner{}))
	}

	return NewClient(append(opts, extra...)...)
}

// ConfiguredConcurrency returns hltb.concurrency clamped to the allowed range.
func ConfiguredConcurrency() int {
	n := viper.GetInt("hltb.concurrency")
	if n <= 0 {
		return DefaultConcurrency
	}
	return min(n, MaxConcurrency)
}
