package agentgraph

import (
	"log/slog"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph/checkpoint"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/observability"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int
	graphName     string

	// Checkpointing
	checkpointStore        checkpoint.Store
	threadID               string
	sequence               int
	checkpointFailureFatal bool

	// Suspension and streaming hooks
	interrupt func(state any) bool
	stepFn    func(nodeID string, state any)

	// Observability
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 1000,
		graphName:     "agentgraph",
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 1000
//
// This prevents infinite loops from hanging forever. If a graph
// exceeds this limit, Run returns an IterationLimitError.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, agentgraph.WithMaxIterations(100))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithGraphName sets the name used in logs, metrics, and trace spans.
// Default: "agentgraph"
func WithGraphName(name string) RunOption {
	return func(c *runConfig) {
		if name != "" {
			c.graphName = name
		}
	}
}

// WithCheckpointStore enables checkpointing to the given store, keyed by
// thread ID. A checkpoint is written after every successful node execution.
//
// Run returns ErrThreadIDRequired if the store is set without a thread ID.
func WithCheckpointStore(store checkpoint.Store, threadID string) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
		c.threadID = threadID
	}
}

// WithCheckpointFailureFatal makes checkpoint save failures abort the run.
// By default checkpoint failures are logged and execution continues.
func WithCheckpointFailureFatal() RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = true
	}
}

// WithInterrupt sets a predicate checked after each node execution.
// When it returns true, a checkpoint pointing back at the interrupting node
// is written (if checkpointing is configured) and Run returns an
// *InterruptError carrying the current state. Resuming the thread
// re-executes that node with the resumed state.
//
// The state passed to the predicate can be type-asserted to S.
func WithInterrupt(fn func(state any) bool) RunOption {
	return func(c *runConfig) {
		c.interrupt = fn
	}
}

// WithStepCallback sets a callback invoked after each successful node
// execution with the node ID and the state it produced. The callback runs
// synchronously on the execution goroutine; it must not block indefinitely.
//
// The state passed to the callback can be type-asserted to S.
func WithStepCallback(fn func(nodeID string, state any)) RunOption {
	return func(c *runConfig) {
		c.stepFn = fn
	}
}

// WithRunLogger sets the logger used for run and node lifecycle events.
// A nil logger disables run-level logging.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for node and run metrics.
// Default: no-op recorder.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables trace spans for the run and each node execution
// using the given span manager.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}

// ResumeOption configures Resume behavior.
type ResumeOption func(*resumeConfig)

// resumeConfig holds configuration for resuming from a checkpoint.
type resumeConfig struct {
	stateOverride func(state any) any
	validateState func(state any) error
	replayNode    bool
	runOpts       []RunOption
}

// WithStateOverride modifies the checkpointed state before resuming.
// The function receives the deserialized state and returns the modified
// state; the returned value must be of the graph's state type.
func WithStateOverride(fn func(state any) any) ResumeOption {
	return func(c *resumeConfig) {
		c.stateOverride = fn
	}
}

// WithStateValidation validates the checkpointed state before resuming.
// Resume fails if the validator returns an error.
func WithStateValidation(fn func(state any) error) ResumeOption {
	return func(c *resumeConfig) {
		c.validateState = fn
	}
}

// WithReplay re-executes the checkpointed node instead of continuing
// from its successor.
func WithReplay() ResumeOption {
	return func(c *resumeConfig) {
		c.replayNode = true
	}
}

// WithRunOptions forwards run options to the resumed execution.
// Checkpointing options are set automatically from the resume target
// and do not need to be repeated.
func WithRunOptions(opts ...RunOption) ResumeOption {
	return func(c *resumeConfig) {
		c.runOpts = append(c.runOpts, opts...)
	}
}
