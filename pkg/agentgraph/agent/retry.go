package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/config"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/state"
)

// Default backoff bounds applied when the retry config leaves them unset.
const (
	defaultMinWait = 500 * time.Millisecond
	defaultMaxWait = 30 * time.Second
)

// retryPolicy bounds a node's execution retries with exponential backoff.
// The wait doubles after each failed attempt, capped at maxWait.
type retryPolicy struct {
	maxAttempts int
	minWait     time.Duration
	maxWait     time.Duration
}

// retryFromConfig converts a config retry block, applying backoff defaults.
// Returns nil when the config carries no retry block.
func retryFromConfig(r *config.Retry) *retryPolicy {
	if r == nil {
		return nil
	}
	p := &retryPolicy{
		maxAttempts: r.MaxAttempts,
		minWait:     r.MinWait.Std(),
		maxWait:     r.MaxWait.Std(),
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.minWait <= 0 {
		p.minWait = defaultMinWait
	}
	if p.maxWait <= 0 {
		p.maxWait = defaultMaxWait
	}
	return p
}

// wait returns the backoff before the given attempt (1-based).
func (p *retryPolicy) wait(attempt int) time.Duration {
	d := p.minWait
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.maxWait {
			return p.maxWait
		}
	}
	if d > p.maxWait {
		return p.maxWait
	}
	return d
}

// withRetry wraps a node function with the retry policy.
// Each attempt starts from the state the node was originally given; the
// last error is surfaced as the node failure after exhaustion.
// Context cancellation and deadline errors are never retried.
func withRetry(nodeID string, p *retryPolicy, fn agentgraph.NodeFunc[state.State]) agentgraph.NodeFunc[state.State] {
	if p == nil || p.maxAttempts <= 1 {
		return fn
	}

	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		var lastErr error
		for attempt := 1; attempt <= p.maxAttempts; attempt++ {
			result, err := fn(ctx, st)
			if err == nil {
				return result, nil
			}
			lastErr = err

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return st, err
			}
			var te *TimeoutError
			if errors.As(err, &te) {
				return st, err
			}

			if attempt == p.maxAttempts {
				break
			}

			ctx.Logger().Warn("node attempt failed, retrying",
				"node_id", nodeID,
				"attempt", attempt,
				"error", err.Error(),
			)

			timer := time.NewTimer(p.wait(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return st, ctx.Err()
			case <-timer.C:
			}
		}
		return st, lastErr
	}
}

// timeoutContext overlays a deadline-bearing standard context onto an
// execution context while keeping its services available to the node.
type timeoutContext struct {
	agentgraph.Context
	std context.Context
}

func (t *timeoutContext) Deadline() (time.Time, bool) { return t.std.Deadline() }
func (t *timeoutContext) Done() <-chan struct{}       { return t.std.Done() }
func (t *timeoutContext) Err() error                  { return t.std.Err() }
func (t *timeoutContext) Value(key any) any           { return t.std.Value(key) }

// withNodeTimeout bounds a node's execution with a deadline.
// The node runs with a deadline-carrying context; if the deadline passes
// before it returns, the wrapper returns a *TimeoutError without waiting.
func withNodeTimeout(nodeID string, d time.Duration, fn agentgraph.NodeFunc[state.State]) agentgraph.NodeFunc[state.State] {
	if d <= 0 {
		return fn
	}

	type outcome struct {
		st  state.State
		err error
	}

	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		std, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		bounded := &timeoutContext{Context: ctx, std: std}
		done := make(chan outcome, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- outcome{st: st, err: fmt.Errorf("panic in node %s: %v", nodeID, r)}
				}
			}()
			result, err := fn(bounded, st)
			done <- outcome{st: result, err: err}
		}()

		select {
		case out := <-done:
			if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
				return out.st, &TimeoutError{NodeID: nodeID, Timeout: d}
			}
			return out.st, out.err
		case <-std.Done():
			if errors.Is(std.Err(), context.DeadlineExceeded) {
				return st, &TimeoutError{NodeID: nodeID, Timeout: d}
			}
			return st, std.Err()
		}
	}
}
