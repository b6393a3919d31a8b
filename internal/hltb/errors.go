package hltb

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies why a strategy failed.
type Reason string

const (
	// ReasonNotFound means the upstream responded but had nothing for the query.
	ReasonNotFound Reason = "not_found"
	// ReasonBlocked means the upstream rejected the request (anti-bot, missing key).
	ReasonBlocked Reason = "blocked"
	// ReasonTimeout means the strategy exceeded its time bound.
	ReasonTimeout Reason = "timeout"
	// ReasonTransport means a network-level failure.
	ReasonTransport Reason = "transport_error"
	// ReasonParse means a response arrived but no extraction rule matched.
	ReasonParse Reason = "parse_error"
	// ReasonInvalidQuery means the query was rejected before any strategy ran.
	ReasonInvalidQuery Reason = "invalid_query"
)

// StrategyError is the failure value returned by strategies.
type StrategyError struct {
	Reason Reason
	Err    error
}

func (e *StrategyError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Fail wraps err with a failure reason.
func Fail(reason Reason, err error) *StrategyError {
	return &StrategyError{Reason: reason, Err: err}
}

// Failf builds a StrategyError from a format string.
func Failf(reason Reason, format string, args ...any) *StrategyError {
	return &StrategyError{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// FailureReason classifies any error returned from a strategy attempt.
func FailureReason(err error) Reason {
	if err == nil {
		return ""
	}

	var strategyErr *StrategyError
	if errors.As(err, &strategyErr) {
		return strategyErr.Reason
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	// Anything else that escaped a strategy is treated as a network problem.
	return ReasonTransport
}

// transportFailure classifies an error from an HTTP round trip.
func transportFailure(err error) *StrategyError {
	reason := FailureReason(err)
	if reason != ReasonTimeout {
		reason = ReasonTransport
	}
	return Fail(reason, err)
}
