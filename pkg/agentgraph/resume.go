package agentgraph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph/checkpoint"
)

// Resume continues execution from the latest checkpoint for a thread.
// It loads the checkpoint and starts execution from the checkpoint's
// next node (which, for interrupted runs, is the interrupting node itself).
//
// Example:
//
//	// Previous run was interrupted awaiting input
//	result, err := compiled.Resume(ctx, store, "thread-123",
//	    agentgraph.WithStateOverride(injectAnswer))
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, threadID string, opts ...ResumeOption) (S, error) {
	var zero S

	if ctx == nil {
		return zero, ErrNilContext
	}

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := store.Load(threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNoCheckpoint, threadID)
		}
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cp.Version != checkpoint.Version {
		return zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	// Apply state override if configured
	if cfg.stateOverride != nil {
		modified := cfg.stateOverride(state)
		if typed, ok := modified.(S); ok {
			state = typed
		}
	}

	// Validate state if configured
	if cfg.validateState != nil {
		if err := cfg.validateState(state); err != nil {
			return state, fmt.Errorf("state validation failed: %w", err)
		}
	}

	// Determine start node
	startNode := cp.NextNode
	if cfg.replayNode {
		startNode = cp.NodeID
	}
	if startNode == END {
		// The previous run finished; nothing to execute.
		return state, nil
	}
	if !cg.HasNode(startNode) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeNode, startNode)
	}

	// Continue execution from determined node
	runCfg := defaultRunConfig()
	for _, opt := range cfg.runOpts {
		opt(&runCfg)
	}
	runCfg.checkpointStore = store
	runCfg.threadID = threadID
	runCfg.sequence = cp.Sequence

	result, _, err := cg.runFrom(ctx, ctx, state, startNode, &runCfg)
	return result, err
}
