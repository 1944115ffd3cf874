package agent

import (
	"fmt"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/config"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/provider"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/state"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/template"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/tool"
)

// Handler is an externally supplied execution unit for custom nodes,
// bound by name at build time.
type Handler func(ctx agentgraph.Context, st state.State) (state.State, error)

// recordNode stamps the executing node's name into the state.
// Every unit does this before acting so observers see where the run is.
func recordNode(st state.State, nodeID string) state.State {
	return st.Merge(map[string]any{state.KeyCurrentNode: nodeID})
}

// newLLMNode builds the execution unit for an llm node.
//
// Message assembly: when the agent declares a system prompt, it is
// prepended (unless the history already opens with one) and the node's
// expanded prompt joins the history as a user message. Without an agent
// system prompt, the node's expanded prompt itself becomes the system
// message and is not persisted. The provider's reply is always appended
// and recorded as the run output.
func newLLMNode(nc config.NodeConfig, systemPrompt string) agentgraph.NodeFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		st = recordNode(st, nc.ID)

		p := ctx.Provider()
		if p == nil {
			return st, &provider.Error{Provider: "unbound", Err: ErrProviderRequired}
		}

		prompt := template.Expand(nc.Prompt, map[string]any(st))
		history := st.Messages()

		msgs := make([]provider.Message, 0, len(history)+2)
		var persistUser bool
		if !hasSystemMessage(history) {
			if systemPrompt != "" {
				msgs = append(msgs, provider.System(template.Expand(systemPrompt, map[string]any(st))))
				persistUser = true
			} else {
				msgs = append(msgs, provider.System(prompt))
			}
		} else {
			persistUser = true
		}
		for _, m := range history {
			msgs = append(msgs, provider.Message{Role: m.Role, Content: m.Content})
		}
		if persistUser {
			msgs = append(msgs, provider.User(prompt))
		}

		reply, err := p.Invoke(ctx, msgs)
		if err != nil {
			return st, err
		}

		appended := []state.Message{}
		if persistUser {
			appended = append(appended, state.Message{Role: state.RoleUser, Content: prompt})
		}
		appended = append(appended, state.Message{Role: state.RoleAssistant, Content: reply.Content})

		return st.Merge(map[string]any{
			state.KeyMessages: appended,
			state.KeyOutput:   reply.Content,
		}), nil
	}
}

// hasSystemMessage reports whether the history already carries a system
// message.
func hasSystemMessage(msgs []state.Message) bool {
	for _, m := range msgs {
		if m.Role == state.RoleSystem {
			return true
		}
	}
	return false
}

// newToolNode builds the execution unit for a tool node.
// The result is stored under the node's id in the tools_output map and a
// synthetic assistant message describes it.
func newToolNode(nc config.NodeConfig) agentgraph.NodeFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		st = recordNode(st, nc.ID)

		reg := ctx.Tools()
		if reg == nil {
			return st, &tool.NotFoundError{Name: nc.Tool}
		}
		t, err := reg.Get(nc.Tool)
		if err != nil {
			return st, err
		}

		input := resolveToolInput(nc.InputMapping, st)
		result, err := t.Invoke(ctx, input)
		if err != nil {
			return st, fmt.Errorf("tool %s: %w", nc.Tool, err)
		}

		outputs, _ := st.Get(state.KeyToolsOutput, map[string]any{}).(map[string]any)
		merged := make(map[string]any, len(outputs)+1)
		for k, v := range outputs {
			merged[k] = v
		}
		merged[nc.ID] = result

		return st.Merge(map[string]any{
			state.KeyToolsOutput: merged,
			state.KeyOutput:      fmt.Sprintf("%v", result),
			state.KeyMessages: []state.Message{{
				Role:    state.RoleAssistant,
				Content: fmt.Sprintf("Tool %s result: %v", nc.Tool, result),
			}},
		}), nil
	}
}

// resolveToolInput builds the tool's input from the configured mapping.
// Values of the form "$name" resolve to the state value under that key,
// or nil when absent; literal values pass through. With no mapping, the
// last message content (falling back to the input key) is passed as
// "input".
func resolveToolInput(mapping map[string]string, st state.State) map[string]any {
	if len(mapping) == 0 {
		if last, ok := st.LastMessage(); ok {
			return map[string]any{"input": last.Content}
		}
		return map[string]any{"input": st.Get(state.KeyInput, "")}
	}

	input := make(map[string]any, len(mapping))
	for key, value := range mapping {
		if len(value) > 1 && value[0] == '$' {
			input[key] = st.Get(value[1:], nil)
			continue
		}
		input[key] = value
	}
	return input
}

// newConditionalNode builds the pass-through unit for a conditional node.
// Routing happens in the router attached as a conditional edge; the node
// itself only records where the run is.
func newConditionalNode(nc config.NodeConfig) agentgraph.NodeFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		return recordNode(st, nc.ID), nil
	}
}

// newConditionalRouter builds the routing decision for a conditional node.
// The evaluated result string is looked up in the branch map, falling back
// to the "default" branch, then to END. Evaluation errors route to
// "default" and are logged, never surfaced.
func newConditionalRouter(nc config.NodeConfig, eval ConditionEvaluator) agentgraph.RouterFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) string {
		result, err := eval.Evaluate(nc.Condition, st)
		if err != nil {
			ctx.Logger().Warn("condition evaluation failed, routing to default",
				"node_id", nc.ID,
				"condition", nc.Condition,
				"error", err.Error(),
			)
			result = "default"
		}

		if target, ok := nc.Branches[result]; ok {
			return target
		}
		if target, ok := nc.Branches["default"]; ok {
			return target
		}
		return agentgraph.END
	}
}

// newHumanInputNode builds the execution unit for a human_input node.
//
// With no pending answer it raises the needs_human_input flag and the
// prompt; the engine's interrupt predicate then suspends the run. When
// re-executed with an answer present (merged in by Resume), it consumes
// the answer: appends it as a user message and clears the flags.
func newHumanInputNode(nc config.NodeConfig) agentgraph.NodeFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		st = recordNode(st, nc.ID)

		answer := st.Get(state.KeyHumanInput, nil)
		if answer == nil {
			return st.Merge(map[string]any{
				state.KeyNeedsHumanInput:  true,
				state.KeyHumanInputPrompt: template.Expand(nc.Prompt, map[string]any(st)),
			}), nil
		}

		return st.Merge(map[string]any{
			state.KeyMessages: []state.Message{{
				Role:    state.RoleUser,
				Content: fmt.Sprintf("%v", answer),
			}},
			state.KeyNeedsHumanInput:  false,
			state.KeyHumanInputPrompt: "",
			state.KeyHumanInput:       nil,
		}), nil
	}
}

// newCustomNode wraps a bound handler with node-name recording.
func newCustomNode(nc config.NodeConfig, h Handler) agentgraph.NodeFunc[state.State] {
	return func(ctx agentgraph.Context, st state.State) (state.State, error) {
		return h(ctx, recordNode(st, nc.ID))
	}
}
