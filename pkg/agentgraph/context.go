package agentgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/checkpoint"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/provider"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/tool"
)

// Context provides execution context to nodes.
// It extends context.Context with agentgraph-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived contexts
// for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// Provider returns the LLM provider, or nil if not configured.
	// Nodes should check for nil before using.
	Provider() provider.Provider

	// Tools returns the tool registry, or nil if not configured.
	// Nodes should check for nil before using.
	Tools() *tool.Registry

	// Checkpointer returns the checkpoint store, or nil if not configured.
	// Nodes should check for nil before using.
	Checkpointer() checkpoint.Store

	// Metadata

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string

	// Attempt returns the retry attempt number (1 = first attempt).
	Attempt() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger       *slog.Logger
	llmProvider  provider.Provider
	tools        *tool.Registry
	checkpointer checkpoint.Store
	runID        string
	nodeID       string
	attempt      int
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// Provider returns the LLM provider.
func (c *executionContext) Provider() provider.Provider {
	return c.llmProvider
}

// Tools returns the tool registry.
func (c *executionContext) Tools() *tool.Registry {
	return c.tools
}

// Checkpointer returns the checkpoint store.
func (c *executionContext) Checkpointer() checkpoint.Store {
	return c.checkpointer
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Attempt returns the retry attempt number.
func (c *executionContext) Attempt() int {
	return c.attempt
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id, node_id, and attempt during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithProvider sets the LLM provider for the context.
func WithProvider(p provider.Provider) ContextOption {
	return func(c *executionContext) {
		c.llmProvider = p
	}
}

// WithTools sets the tool registry for the context.
func WithTools(tools *tool.Registry) ContextOption {
	return func(c *executionContext) {
		c.tools = tools
	}
}

// WithCheckpointer sets the checkpoint store for the context.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) {
		c.checkpointer = store
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
// This is used for logging and tracing. For checkpointing, use
// WithCheckpointStore() as a RunOption with Run().
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// agentgraph-specific services and metadata.
//
// Example:
//
//	ctx := agentgraph.NewContext(context.Background(),
//	    agentgraph.WithLogger(myLogger),
//	    agentgraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
		attempt: 1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNodeID returns a new context with the given node ID set.
// Used internally by the executor to enrich the context per-node.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context:      c.Context,
		logger:       c.logger.With("run_id", c.runID, "node_id", nodeID, "attempt", c.attempt),
		llmProvider:  c.llmProvider,
		tools:        c.tools,
		checkpointer: c.checkpointer,
		runID:        c.runID,
		nodeID:       nodeID,
		attempt:      c.attempt,
	}
}
