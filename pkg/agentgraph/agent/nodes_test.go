package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/config"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/provider"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/state"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/tool"
)

func testContext(t *testing.T, opts ...agentgraph.ContextOption) agentgraph.Context {
	t.Helper()
	return agentgraph.NewContext(context.Background(), opts...)
}

func seededState(input string) state.State {
	return state.New().Merge(map[string]any{
		state.KeyInput:    input,
		state.KeyMessages: []state.Message{{Role: state.RoleUser, Content: input}},
	})
}

func TestLLMNodePromptBecomesSystemMessage(t *testing.T) {
	var captured []provider.Message
	p := provider.Func(func(ctx context.Context, msgs []provider.Message) (provider.Message, error) {
		captured = msgs
		return provider.Assistant("the answer"), nil
	})

	node := newLLMNode(config.NodeConfig{
		ID:     "understand",
		Type:   config.NodeLLM,
		Prompt: "Analyze: $input",
	}, "")

	st := seededState("hello")
	result, err := node(testContext(t, agentgraph.WithProvider(p)), st)
	require.NoError(t, err)

	require.NotEmpty(t, captured)
	assert.Equal(t, provider.RoleSystem, captured[0].Role)
	assert.Equal(t, "Analyze: hello", captured[0].Content)
	assert.Equal(t, provider.RoleUser, captured[1].Role)

	assert.Equal(t, "understand", result.GetString(state.KeyCurrentNode))
	assert.Equal(t, "the answer", result.GetString(state.KeyOutput))

	msgs := result.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, state.RoleAssistant, msgs[1].Role)
}

func TestLLMNodeAgentSystemPromptPersistsUserTurn(t *testing.T) {
	var captured []provider.Message
	p := provider.Func(func(ctx context.Context, msgs []provider.Message) (provider.Message, error) {
		captured = msgs
		return provider.Assistant("ok"), nil
	})

	node := newLLMNode(config.NodeConfig{
		ID:     "respond",
		Type:   config.NodeLLM,
		Prompt: "Answer the question",
	}, "You are helpful.")

	result, err := node(testContext(t, agentgraph.WithProvider(p)), seededState("hi"))
	require.NoError(t, err)

	assert.Equal(t, provider.RoleSystem, captured[0].Role)
	assert.Equal(t, "You are helpful.", captured[0].Content)
	assert.Equal(t, "Answer the question", captured[len(captured)-1].Content)

	msgs := result.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Answer the question", msgs[1].Content)
	assert.Equal(t, "ok", msgs[2].Content)
}

func TestLLMNodeWithoutProviderFails(t *testing.T) {
	node := newLLMNode(config.NodeConfig{ID: "n", Type: config.NodeLLM, Prompt: "p"}, "")

	_, err := node(testContext(t), state.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestLLMNodePropagatesProviderError(t *testing.T) {
	p := provider.Func(func(ctx context.Context, msgs []provider.Message) (provider.Message, error) {
		return provider.Message{}, &provider.Error{Provider: "mock", Err: errors.New("rate limited")}
	})
	node := newLLMNode(config.NodeConfig{ID: "n", Type: config.NodeLLM, Prompt: "p"}, "")

	_, err := node(testContext(t, agentgraph.WithProvider(p)), state.New())
	require.Error(t, err)

	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "mock", pe.Provider)
}

func TestResolveToolInput(t *testing.T) {
	st := state.New().Merge(map[string]any{
		"query": "125*48",
		"limit": 3,
	})

	tests := []struct {
		name    string
		mapping map[string]string
		want    map[string]any
	}{
		{
			name:    "field references and literals",
			mapping: map[string]string{"expression": "$query", "mode": "strict", "n": "$limit"},
			want:    map[string]any{"expression": "125*48", "mode": "strict", "n": 3},
		},
		{
			name:    "missing field resolves to nil",
			mapping: map[string]string{"value": "$nope"},
			want:    map[string]any{"value": nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveToolInput(tt.mapping, st))
		})
	}
}

func TestResolveToolInputDefaultsToLastMessage(t *testing.T) {
	st := seededState("what is 2+2")
	got := resolveToolInput(nil, st)
	assert.Equal(t, map[string]any{"input": "what is 2+2"}, got)

	empty := state.New()
	empty.Set(state.KeyInput, "fallback")
	got = resolveToolInput(nil, empty)
	assert.Equal(t, map[string]any{"input": "fallback"}, got)
}

func TestToolNodeRecordsResult(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(tool.NewFunc("calculator", "math", func(ctx context.Context, input map[string]any) (any, error) {
		return 6372, nil
	}))

	node := newToolNode(config.NodeConfig{ID: "calc", Type: config.NodeTool, Tool: "calculator"})

	result, err := node(testContext(t, agentgraph.WithTools(reg)), seededState("125*48+372"))
	require.NoError(t, err)

	outputs, ok := result.Get(state.KeyToolsOutput, nil).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 6372, outputs["calc"])
	assert.Equal(t, "6372", result.GetString(state.KeyOutput))

	last, ok := result.LastMessage()
	require.True(t, ok)
	assert.Equal(t, state.RoleAssistant, last.Role)
	assert.Equal(t, "Tool calculator result: 6372", last.Content)
}

func TestToolNodeUnregisteredTool(t *testing.T) {
	node := newToolNode(config.NodeConfig{ID: "t", Type: config.NodeTool, Tool: "missing"})

	_, err := node(testContext(t, agentgraph.WithTools(tool.NewRegistry())), state.New())
	require.Error(t, err)

	var nf *tool.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Name)
}

func TestConditionalRouter(t *testing.T) {
	nc := config.NodeConfig{
		ID:        "route",
		Type:      config.NodeConditional,
		Condition: "category",
		Branches: map[string]string{
			"calculation": "use_calculator",
			"default":     "search_web",
		},
	}

	tests := []struct {
		name string
		st   state.State
		want string
	}{
		{"branch match", state.State{"category": "calculation"}, "use_calculator"},
		{"unknown result falls back to default", state.State{"category": "poetry"}, "search_web"},
		{"missing value falls back to default", state.State{}, "search_web"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newConditionalRouter(nc, NewExprEvaluator())
			assert.Equal(t, tt.want, router(testContext(t), tt.st))
		})
	}
}

func TestConditionalRouterWithoutDefaultRoutesToEnd(t *testing.T) {
	router := newConditionalRouter(config.NodeConfig{
		ID:        "route",
		Condition: "category",
		Branches:  map[string]string{"calculation": "use_calculator"},
	}, NewExprEvaluator())

	assert.Equal(t, agentgraph.END, router(testContext(t), state.State{"category": "poetry"}))
}

func TestConditionalRouterEndAlias(t *testing.T) {
	router := newConditionalRouter(config.NodeConfig{
		ID:        "route",
		Condition: "done",
		Branches:  map[string]string{"true": "end", "default": "loop"},
	}, NewExprEvaluator())

	// The engine normalizes alias spellings returned by routers.
	assert.True(t, agentgraph.IsEnd(router(testContext(t), state.State{"done": true})))
}

func TestConditionalRouterEvaluationErrorRoutesToDefault(t *testing.T) {
	failing := EvaluatorFunc(func(condition string, st state.State) (string, error) {
		return "", errors.New("bad expression")
	})
	router := newConditionalRouter(config.NodeConfig{
		ID:        "route",
		Condition: "???",
		Branches:  map[string]string{"default": "fallback"},
	}, failing)

	assert.Equal(t, "fallback", router(testContext(t), state.New()))
}

func TestHumanInputNodeRequestsInput(t *testing.T) {
	node := newHumanInputNode(config.NodeConfig{
		ID:     "confirm",
		Type:   config.NodeHumanInput,
		Prompt: "Proceed with $input?",
	})

	result, err := node(testContext(t), seededState("deploy"))
	require.NoError(t, err)

	assert.True(t, result.NeedsHumanInput())
	assert.Equal(t, "Proceed with deploy?", result.GetString(state.KeyHumanInputPrompt))
	assert.Equal(t, "confirm", result.GetString(state.KeyCurrentNode))
}

func TestHumanInputNodeConsumesAnswer(t *testing.T) {
	node := newHumanInputNode(config.NodeConfig{ID: "confirm", Type: config.NodeHumanInput})

	st := seededState("deploy").Merge(map[string]any{
		state.KeyNeedsHumanInput:  true,
		state.KeyHumanInputPrompt: "Proceed?",
		state.KeyHumanInput:       "yes",
	})

	result, err := node(testContext(t), st)
	require.NoError(t, err)

	assert.False(t, result.NeedsHumanInput())
	assert.Equal(t, "", result.GetString(state.KeyHumanInputPrompt))
	assert.Nil(t, result.Get(state.KeyHumanInput, nil))

	last, ok := result.LastMessage()
	require.True(t, ok)
	assert.Equal(t, state.RoleUser, last.Role)
	assert.Equal(t, "yes", last.Content)
}

func TestCustomNodeRecordsCurrentNode(t *testing.T) {
	var seen string
	node := newCustomNode(config.NodeConfig{ID: "mine", Type: config.NodeCustom, Handler: "h"},
		func(ctx agentgraph.Context, st state.State) (state.State, error) {
			seen = st.GetString(state.KeyCurrentNode)
			return st, nil
		})

	_, err := node(testContext(t), state.New())
	require.NoError(t, err)
	assert.Equal(t, "mine", seen)
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	fn := func(ctx agentgraph.Context, st state.State) (state.State, error) {
		attempts++
		if attempts < 3 {
			return st, errors.New("transient")
		}
		return st, nil
	}

	wrapped := withRetry("n", &retryPolicy{maxAttempts: 3, minWait: time.Millisecond, maxWait: time.Millisecond}, fn)
	_, err := wrapped(testContext(t), state.New())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustionSurfacesLastError(t *testing.T) {
	attempts := 0
	boom := errors.New("still broken")
	fn := func(ctx agentgraph.Context, st state.State) (state.State, error) {
		attempts++
		return st, boom
	}

	wrapped := withRetry("n", &retryPolicy{maxAttempts: 3, minWait: time.Millisecond, maxWait: time.Millisecond}, fn)
	_, err := wrapped(testContext(t), state.New())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryDoesNotRetryCancellation(t *testing.T) {
	attempts := 0
	fn := func(ctx agentgraph.Context, st state.State) (state.State, error) {
		attempts++
		return st, context.Canceled
	}

	wrapped := withRetry("n", &retryPolicy{maxAttempts: 5, minWait: time.Millisecond, maxWait: time.Millisecond}, fn)
	_, err := wrapped(testContext(t), state.New())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := &retryPolicy{maxAttempts: 5, minWait: 100 * time.Millisecond, maxWait: 300 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.wait(1))
	assert.Equal(t, 200*time.Millisecond, p.wait(2))
	assert.Equal(t, 300*time.Millisecond, p.wait(3))
	assert.Equal(t, 300*time.Millisecond, p.wait(4))
}

func TestWithNodeTimeout(t *testing.T) {
	slow := func(ctx agentgraph.Context, st state.State) (state.State, error) {
		select {
		case <-time.After(time.Second):
			return st, nil
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}

	wrapped := withNodeTimeout("slow", 10*time.Millisecond, slow)
	_, err := wrapped(testContext(t), state.New())
	require.Error(t, err)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "slow", te.NodeID)
}

func TestWithNodeTimeoutFastNodePasses(t *testing.T) {
	fast := func(ctx agentgraph.Context, st state.State) (state.State, error) {
		return st.Merge(map[string]any{state.KeyOutput: "done"}), nil
	}

	wrapped := withNodeTimeout("fast", time.Second, fast)
	result, err := wrapped(testContext(t), state.New())
	require.NoError(t, err)
	assert.Equal(t, "done", result.GetString(state.KeyOutput))
}
