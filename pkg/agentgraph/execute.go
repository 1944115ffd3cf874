package agentgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph/checkpoint"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check for cancellation
//  3. Execute the current node
//  4. Check the interrupt predicate (suspension)
//  5. Determine the next node (via simple or conditional edge)
//  6. Checkpoint, then repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := agentgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Validate checkpointing configuration
	if cfg.checkpointStore != nil && cfg.threadID == "" {
		return state, ErrThreadIDRequired
	}

	runID := ctx.RunID()
	startTime := time.Now()

	observability.LogRunStart(cfg.logger, cfg.graphName, runID)

	// Start run span if tracing enabled
	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, cfg.graphName, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.runFrom(execCtx, ctx, state, cg.entryPoint, &cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())

	cfg.metrics.RecordRun(ctx, cfg.graphName, runErr == nil, duration)

	if runErr != nil {
		// Get last node from error if available
		lastNode := ""
		switch e := runErr.(type) {
		case *NodeError:
			lastNode = e.NodeID
		case *IterationLimitError:
			lastNode = e.LastNodeID
		case *CancellationError:
			lastNode = e.NodeID
		case *InterruptError:
			lastNode = e.NodeID
		}
		observability.LogRunError(cfg.logger, cfg.graphName, runID, runErr, durationMs, lastNode)
	} else {
		observability.LogRunComplete(cfg.logger, cfg.graphName, runID, durationMs, nodeCount)
	}

	return result, runErr
}

// runFrom executes the graph starting from a specific node.
// tracingCtx carries span context; agCtx is the agentgraph Context.
// Returns the final state, node count, and any error.
func (cg *CompiledGraph[S]) runFrom(tracingCtx context.Context, agCtx Context, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	iterations := 0
	prevNode := ""
	nodeCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, &IterationLimitError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		// Check for cancellation before executing node
		select {
		case <-agCtx.Done():
			return state, nodeCount, &CancellationError{
				NodeID:       current,
				State:        state,
				Cause:        agCtx.Err(),
				WasExecuting: false,
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		// Start node span if tracing enabled
		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()

		var nodeErr error
		state, nodeErr = cg.executeNode(agCtx, current, state)

		nodeDuration := time.Since(nodeStart)
		nodeDurationMs := float64(nodeDuration.Milliseconds())

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, cfg.graphName, current, nodeDuration, nodeErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeCount, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, nodeDurationMs)
		nodeCount++

		if cfg.stepFn != nil {
			cfg.stepFn(current, state)
		}

		// Suspension check. The checkpoint points back at the interrupting
		// node so that resuming re-executes it with the resumed state.
		if cfg.interrupt != nil && cfg.interrupt(state) {
			if cfg.checkpointStore != nil {
				if err := cg.saveCheckpoint(agCtx, cfg, current, prevNode, state, current); err != nil {
					return state, nodeCount, err
				}
			}
			return state, nodeCount, &InterruptError{
				NodeID: current,
				State:  state,
			}
		}

		// Determine next node
		next, err := cg.nextNode(agCtx, state, current)
		if err != nil {
			return state, nodeCount, err
		}

		// Checkpoint after successful node execution
		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(agCtx, cfg, current, prevNode, state, next); err != nil {
				return state, nodeCount, err
			}
		}

		prevNode = current
		current = next
	}

	return state, nodeCount, nil
}

// saveCheckpoint persists the current state after node execution.
// Failures are logged and ignored unless checkpointFailureFatal is set.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	// Serialize state
	stateBytes, err := json.Marshal(state)
	if err != nil {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{
				NodeID: nodeID,
				Op:     "serialize",
				Err:    err,
			}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, "serialize", err)
		return nil
	}

	cfg.sequence++
	cpOpts := []checkpoint.Option{checkpoint.WithPrevNode(prevNodeID)}
	if cfg.graphName != "" {
		cpOpts = append(cpOpts, checkpoint.WithGraph(cfg.graphName))
	}
	if ec, ok := ctx.(*executionContext); ok {
		cpOpts = append(cpOpts, checkpoint.WithAttempt(ec.attempt))
	}
	cp := checkpoint.New(cfg.threadID, nodeID, cfg.sequence, stateBytes, nextNode, cpOpts...)

	data, err := cp.Marshal()
	if err != nil {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{
				NodeID: nodeID,
				Op:     "marshal",
				Err:    err,
			}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, "marshal", err)
		return nil
	}

	if err := cfg.checkpointStore.Save(cfg.threadID, data); err != nil {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{
				NodeID: nodeID,
				Op:     "save",
				Err:    err,
			}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, "save", err)
		return nil
	}

	sizeBytes := len(data)
	observability.LogCheckpoint(cfg.logger, cfg.threadID, nodeID, sizeBytes)
	cfg.metrics.RecordCheckpoint(ctx, cfg.graphName, cfg.threadID, int64(sizeBytes))

	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// This shouldn't happen if compilation was successful
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	// Create node-specific context with enriched logger
	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	// Check for conditional edge first
	if router, exists := cg.getRouter(current); exists {
		// Create node-specific context for the router
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := NormalizeEnd(router(routerCtx, state))

		// Validate router result
		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}

		if next != END {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	// Use simple edges
	edges := cg.getEdges(current)
	if len(edges) == 0 {
		// No outgoing edges - this shouldn't happen if compilation was successful
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	// Execution is strictly sequential: a node follows its first simple edge.
	return edges[0], nil
}
