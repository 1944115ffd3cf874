// Package agent compiles declarative agent configurations into executable
// workflow graphs and runs them with invoke, stream, and resume semantics.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/checkpoint"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/config"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/observability"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/provider"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/state"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/tool"
)

// Status is the terminal (or suspended) state of an agent run.
type Status string

// Run statuses.
const (
	StatusRunning            Status = "running"
	StatusAwaitingHumanInput Status = "awaiting_human_input"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

// Result is the outcome of an Invoke or Resume call.
type Result struct {
	// Status is the terminal status of the run.
	Status Status
	// State is the final (or suspended, or failure-point) state.
	State state.State
	// ThreadID identifies the checkpoint thread, when checkpointing is on.
	ThreadID string
}

// Output returns the run's last output value.
func (r *Result) Output() string {
	return r.State.GetString(state.KeyOutput)
}

// HumanInputPrompt returns the pending question when the run is awaiting
// human input.
func (r *Result) HumanInputPrompt() string {
	return r.State.GetString(state.KeyHumanInputPrompt)
}

// Snapshot is one streamed intermediate state.
// The final snapshot of a stream carries the terminal status and error.
type Snapshot struct {
	// NodeID is the node that produced this state.
	NodeID string
	// State is an independent copy of the state after the node executed.
	State state.State
	// Status is StatusRunning for intermediate snapshots, terminal otherwise.
	Status Status
	// Err is set on the final snapshot of a failed run.
	Err error
}

// Agent is an executable workflow compiled from an AgentConfig.
// It is immutable and safe for concurrent invocations; each run owns an
// independent state instance.
type Agent struct {
	cfg      *config.AgentConfig
	compiled *agentgraph.CompiledGraph[state.State]
	provider provider.Provider
	tools    *tool.Registry
	logger   *slog.Logger
	store    checkpoint.Store
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
}

// Name returns the agent's configured name.
func (a *Agent) Name() string { return a.cfg.Name }

// Config returns the agent's configuration.
func (a *Agent) Config() *config.AgentConfig { return a.cfg }

// Graph returns the compiled workflow graph.
func (a *Agent) Graph() *agentgraph.CompiledGraph[state.State] { return a.compiled }

// InvokeOption configures a single Invoke or Stream call.
type InvokeOption func(*invokeConfig)

type invokeConfig struct {
	threadID string
}

// WithThread keys the run's checkpoints by the given thread id.
// When a checkpoint already exists for the thread, its state seeds the
// run. With a checkpoint store configured and no thread given, a thread
// id is generated; Result.ThreadID reports it.
func WithThread(id string) InvokeOption {
	return func(c *invokeConfig) { c.threadID = id }
}

func (a *Agent) newInvokeConfig(opts []InvokeOption) invokeConfig {
	var ic invokeConfig
	for _, opt := range opts {
		opt(&ic)
	}
	if ic.threadID == "" && a.store != nil {
		ic.threadID = uuid.New().String()
	}
	return ic
}

// Invoke runs the agent to completion, suspension, or failure.
//
// Input seeding: a string becomes both the input key and a user message;
// a map merges directly into the initial state; nil starts from the bare
// initial state.
//
// The returned Result reports the terminal status. A human-input pause is
// not an error: Invoke returns StatusAwaitingHumanInput with a nil error,
// and the run continues later via Resume. Failures return the partial
// state (with the error recorded under its error key) alongside the error.
func (a *Agent) Invoke(ctx context.Context, input any, opts ...InvokeOption) (*Result, error) {
	ic := a.newInvokeConfig(opts)

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout.Std())
		defer cancel()
	}

	st, err := a.initialState(input, ic.threadID)
	if err != nil {
		return nil, err
	}

	final, err := a.compiled.Run(a.newContext(ctx), st, a.runOptions(ic.threadID)...)
	return a.finish(final, err, ic.threadID)
}

// Stream runs the agent like Invoke but yields an independent state
// snapshot after each node execution. The sequence is finite, emitted in
// node-execution order, and closed when the run completes, pauses, or
// fails; the final snapshot carries the terminal status and any error.
//
// The caller must drain the channel until it is closed.
func (a *Agent) Stream(ctx context.Context, input any, opts ...InvokeOption) (<-chan Snapshot, error) {
	ic := a.newInvokeConfig(opts)

	st, err := a.initialState(input, ic.threadID)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if a.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout.Std())
	}

	ch := make(chan Snapshot, 16)
	go func() {
		defer close(ch)
		if cancel != nil {
			defer cancel()
		}

		runOpts := append(a.runOptions(ic.threadID),
			agentgraph.WithStepCallback(func(nodeID string, s any) {
				snap, ok := s.(state.State)
				if !ok {
					return
				}
				ch <- Snapshot{NodeID: nodeID, State: snap.Snapshot(), Status: StatusRunning}
			}),
		)

		final, runErr := a.compiled.Run(a.newContext(runCtx), st, runOpts...)
		res, resErr := a.finish(final, runErr, ic.threadID)
		ch <- Snapshot{
			NodeID: res.State.GetString(state.KeyCurrentNode),
			State:  res.State,
			Status: res.Status,
			Err:    resErr,
		}
	}()

	return ch, nil
}

// Resume continues a suspended run from the thread's latest checkpoint.
// The answer, when non-nil, is merged under the human_input key so the
// suspended human-input node consumes it on re-execution.
func (a *Agent) Resume(ctx context.Context, threadID string, answer any, opts ...InvokeOption) (*Result, error) {
	if a.store == nil {
		return nil, ErrNoCheckpointStore
	}
	if threadID == "" {
		return nil, agentgraph.ErrThreadIDRequired
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout.Std())
		defer cancel()
	}

	final, err := a.compiled.Resume(a.newContext(ctx), a.store, threadID,
		agentgraph.WithStateOverride(func(s any) any {
			st, ok := s.(state.State)
			if !ok || answer == nil {
				return s
			}
			return st.Merge(map[string]any{state.KeyHumanInput: answer})
		}),
		agentgraph.WithRunOptions(a.runOptions(threadID)...),
	)
	return a.finish(final, err, threadID)
}

// initialState builds the run's starting state: required keys, custom
// schema defaults, checkpointed thread state if one exists, then the
// caller's input.
func (a *Agent) initialState(input any, threadID string) (state.State, error) {
	st := state.New()

	for _, f := range a.cfg.StateSchema {
		if _, ok := st[f.Name]; !ok {
			st[f.Name] = f.Default
		}
	}

	if threadID != "" && a.store != nil {
		data, err := a.store.Load(threadID)
		switch {
		case err == nil:
			cp, err := checkpoint.Unmarshal(data)
			if err != nil {
				return nil, fmt.Errorf("thread %s: %w", threadID, err)
			}
			if cp.Graph != "" && cp.Graph != a.cfg.Name {
				return nil, fmt.Errorf("thread %s belongs to agent %q, not %q", threadID, cp.Graph, a.cfg.Name)
			}
			var prev state.State
			if err := json.Unmarshal(cp.State, &prev); err != nil {
				return nil, fmt.Errorf("thread %s: %w", threadID, err)
			}
			st = st.Merge(prev)
		case errors.Is(err, checkpoint.ErrNotFound):
			// fresh thread
		default:
			return nil, fmt.Errorf("thread %s: %w", threadID, err)
		}
	}

	switch v := input.(type) {
	case nil:
	case string:
		st = st.Merge(map[string]any{
			state.KeyInput:    v,
			state.KeyMessages: []state.Message{{Role: state.RoleUser, Content: v}},
		})
	case map[string]any:
		st = st.Merge(v)
	case state.State:
		st = st.Merge(map[string]any(v))
	default:
		return nil, fmt.Errorf("agent: unsupported input type %T", input)
	}

	for _, f := range a.cfg.StateSchema {
		if f.Required && st[f.Name] == nil {
			return nil, fmt.Errorf("agent: required state field %q is missing", f.Name)
		}
	}

	return st, nil
}

// newContext assembles the execution context with the agent's
// collaborators.
func (a *Agent) newContext(ctx context.Context) agentgraph.Context {
	opts := []agentgraph.ContextOption{
		agentgraph.WithProvider(a.provider),
		agentgraph.WithTools(a.tools),
	}
	if a.store != nil {
		opts = append(opts, agentgraph.WithCheckpointer(a.store))
	}
	if a.cfg.LoggingEnabled() && a.logger != nil {
		opts = append(opts, agentgraph.WithLogger(a.logger))
	}
	return agentgraph.NewContext(ctx, opts...)
}

// runOptions derives the engine options from the agent config.
func (a *Agent) runOptions(threadID string) []agentgraph.RunOption {
	opts := []agentgraph.RunOption{
		agentgraph.WithGraphName(a.cfg.Name),
		agentgraph.WithInterrupt(func(s any) bool {
			st, ok := s.(state.State)
			return ok && st.NeedsHumanInput()
		}),
	}

	if a.cfg.Workflow == config.WorkflowCyclic {
		opts = append(opts, agentgraph.WithMaxIterations(a.cfg.MaxIterationsOrDefault()))
	} else if a.cfg.MaxIterations > 0 {
		opts = append(opts, agentgraph.WithMaxIterations(a.cfg.MaxIterations))
	}

	if a.cfg.LoggingEnabled() {
		opts = append(opts, agentgraph.WithRunLogger(a.logger))
	}
	if a.cfg.MetricsEnabled() && a.metrics != nil {
		opts = append(opts, agentgraph.WithMetrics(a.metrics))
	}
	if a.cfg.TracingEnabled() && a.spans != nil {
		opts = append(opts, agentgraph.WithTracing(a.spans))
	}
	if a.store != nil && threadID != "" {
		opts = append(opts, agentgraph.WithCheckpointStore(a.store, threadID))
	}

	return opts
}

// finish maps the engine outcome onto the agent status machine.
func (a *Agent) finish(final state.State, err error, threadID string) (*Result, error) {
	if final == nil {
		final = state.New()
	}
	res := &Result{State: final, ThreadID: threadID}

	if err == nil {
		res.Status = StatusCompleted
		return res, nil
	}

	var ie *agentgraph.InterruptError
	if errors.As(err, &ie) {
		res.Status = StatusAwaitingHumanInput
		return res, nil
	}

	// A run-level deadline surfaces either as a cancellation between nodes
	// or as a deadline error out of the executing node; report both as a
	// timeout.
	var te *TimeoutError
	if !errors.As(err, &te) && errors.Is(err, context.DeadlineExceeded) {
		nodeID := final.GetString(state.KeyCurrentNode)
		var ce *agentgraph.CancellationError
		if errors.As(err, &ce) {
			nodeID = ce.NodeID
		}
		err = &TimeoutError{NodeID: nodeID, Timeout: a.cfg.Timeout.Std()}
	}

	final.SetError(err)
	res.Status = StatusFailed
	return res, err
}
