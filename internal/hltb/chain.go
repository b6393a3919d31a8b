package hltb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

// Step is one strategy with its time bound.
type Step struct {
	Strategy Strategy
	Timeout  time.Duration
}

// Chain runs strategies in priority order and stops at the first success.
type Chain struct {
	steps   []Step
	metrics *chainMetrics
}

// NewChain creates a chain over the given steps. Steps without a timeout get
// the default for their tag.
func NewChain(steps ...Step) *Chain {
	c := &Chain{steps: make([]Step, 0, len(steps))}
	for _, s := range steps {
		if s.Strategy == nil {
			continue
		}
		if s.Timeout <= 0 {
			s.Timeout = DefaultTimeout(s.Strategy.Name())
		}
		c.steps = append(c.steps, s)
	}
	return c
}

// Instrument registers attempt metrics on reg. A nil registerer disables them.
func (c *Chain) Instrument(reg prometheus.Registerer) *Chain {
	c.metrics = newChainMetrics(reg)
	return c
}

// Tags returns the strategy tags in chain order.
func (c *Chain) Tags() []string {
	tags := make([]string, len(c.steps))
	for i, s := range c.steps {
		tags[i] = s.Strategy.Name()
	}
	return tags
}

// Run tries every step in order. The returned outcome either carries the
// first result or one failure per attempted step. Cancelling ctx stops the
// chain after recording a timeout for the step in flight.
func (c *Chain) Run(ctx context.Context, q Query) Outcome {
	var failures []Failure

	for _, step := range c.steps {
		tag := step.Strategy.Name()
		if ctx.Err() != nil {
			failures = append(failures, Failure{Strategy: tag, Reason: ReasonTimeout, Message: ctx.Err().Error()})
			return Unavailable(failures...)
		}

		start := time.Now()
		result, err := c.attempt(ctx, step, q)
		elapsed := time.Since(start)

		if err == nil {
			result.Strategy = tag
			c.metrics.observe(tag, outcomeSuccess, elapsed)
			slog.Info("Resolved completion times", "query", q, "strategy", tag, "id", result.ID, "elapsed", elapsed)
			return Outcome{Result: result}
		}

		reason := FailureReason(err)
		c.metrics.observe(tag, string(reason), elapsed)
		slog.Debug("Strategy failed", "query", q, "strategy", tag, "reason", reason, "elapsed", elapsed, "error", err)
		failures = append(failures, Failure{Strategy: tag, Reason: reason, Message: err.Error()})

		if ctx.Err() != nil {
			return Unavailable(failures...)
		}
	}

	return Unavailable(failures...)
}

type attemptResult struct {
	result *Result
	err    error
}

// attempt runs one strategy under its own deadline. The strategy runs in its
// own goroutine so one that ignores its context is still abandoned on time.
func (c *Chain) attempt(ctx context.Context, step Step, q Query) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: Failf(ReasonParse, "strategy panicked: %v", r)}
			}
		}()
		result, err := step.Strategy.Attempt(ctx, q)
		done <- attemptResult{result: result, err: err}
	}()

	select {
	case res := <-done:
		switch {
		case res.err != nil:
			return nil, res.err
		case res.result == nil:
			return nil, Failf(ReasonNotFound, "strategy returned no result")
		}
		return res.result, nil
	case <-ctx.Done():
		return nil, Fail(ReasonTimeout, fmt.Errorf("%s exceeded %s: %w", step.Strategy.Name(), step.Timeout, ctx.Err()))
	}
}
