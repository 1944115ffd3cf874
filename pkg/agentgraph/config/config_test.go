package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AgentConfig {
	return AgentConfig{
		Name:     "assistant",
		Workflow: WorkflowSequential,
		Nodes: []NodeConfig{
			{ID: "think", Type: NodeLLM, Prompt: "Answer: $input"},
			{ID: "respond", Type: NodeLLM, Prompt: "Summarize"},
		},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := AgentConfig{
		Workflow: "bogus",
		Nodes: []NodeConfig{
			{ID: "a", Type: NodeLLM},        // missing prompt
			{ID: "a", Type: NodeTool},       // duplicate id, missing tool
			{ID: "c", Type: NodeType("??")}, // unknown type
		},
		EntryPoint: "nope",
	}

	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.GreaterOrEqual(t, len(cfgErr.Violations), 6)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "entry_point")
}

func TestValidateNodeTypeRules(t *testing.T) {
	tests := []struct {
		name string
		node NodeConfig
		want string
	}{
		{"llm without prompt", NodeConfig{ID: "n", Type: NodeLLM}, "requires a prompt"},
		{"tool without tool name", NodeConfig{ID: "n", Type: NodeTool}, "requires a tool name"},
		{"conditional without condition", NodeConfig{ID: "n", Type: NodeConditional}, "requires a condition"},
		{"custom without handler", NodeConfig{ID: "n", Type: NodeCustom}, "requires a handler name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AgentConfig{Name: "a", Workflow: WorkflowSequential, Nodes: []NodeConfig{tt.node}}
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateHumanInputNeedsNothing(t *testing.T) {
	cfg := AgentConfig{
		Name:     "a",
		Workflow: WorkflowSequential,
		Nodes:    []NodeConfig{{ID: "ask", Type: NodeHumanInput}},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidateTopologyEdgeRules(t *testing.T) {
	cfg := validConfig()
	cfg.Edges = []EdgeConfig{{From: "think", To: "respond"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not accept explicit edges")

	cfg = validConfig()
	cfg.Workflow = WorkflowCustom
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires explicit edges")
}

func TestValidateToolsList(t *testing.T) {
	base := func() AgentConfig {
		return AgentConfig{
			Name:     "a",
			Workflow: WorkflowSequential,
			Tools:    []string{"calculator", "search"},
			Nodes: []NodeConfig{
				{ID: "calc", Type: NodeTool, Tool: "calculator"},
			},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Nodes[0].Tool = "translator"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `uses tool "translator" not declared in the tools list`)

	cfg = base()
	cfg.Tools = []string{"calculator", "calculator"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate tool "calculator"`)

	cfg = base()
	cfg.Tools = []string{""}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools entries must not be empty")

	// An empty tools list leaves tool nodes unconstrained.
	cfg = base()
	cfg.Tools = nil
	assert.NoError(t, cfg.Validate())
}

func TestValidateBranchTargets(t *testing.T) {
	cfg := AgentConfig{
		Name:     "a",
		Workflow: WorkflowConditional,
		Nodes: []NodeConfig{
			{ID: "route", Type: NodeConditional, Condition: "score > 5",
				Branches: map[string]string{"true": "missing", "default": "end"}},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `branch "true" targets undeclared node "missing"`)
	assert.NotContains(t, err.Error(), `branch "default"`)
}

func TestValidateEdgeEndpoints(t *testing.T) {
	cfg := validConfig()
	cfg.Workflow = WorkflowCustom
	cfg.Edges = []EdgeConfig{
		{From: "think", To: "respond"},
		{From: "ghost", To: "think"},
		{From: "respond", To: "END"}, // END alias is always valid
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `edge from "ghost"`)
	assert.NotContains(t, err.Error(), `edge to "END"`)
}

func TestMaxIterationsOrDefault(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterationsOrDefault())

	cfg.MaxIterations = 25
	assert.Equal(t, 25, cfg.MaxIterationsOrDefault())
}

func TestObservabilityFlagsDefaultEnabled(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.LoggingEnabled())
	assert.True(t, cfg.MetricsEnabled())
	assert.True(t, cfg.TracingEnabled())

	off := false
	cfg.EnableMetrics = &off
	assert.False(t, cfg.MetricsEnabled())
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"90s"`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`2.5`), &d))
	assert.Equal(t, 2500*time.Millisecond, d.Std())

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}

func TestFromYAML(t *testing.T) {
	doc := []byte(`
name: researcher
workflow_type: conditional
system_prompt: You are a researcher.
max_iterations: 5
timeout: 30s
tools:
  - calculator
nodes:
  - id: classify
    type: conditional
    condition: "input contains 'calculate'"
    branches:
      "true": calc
      default: answer
  - id: calc
    type: tool
    tool: calculator
    input_mapping:
      expression: $input
    retry:
      max_attempts: 3
      min_wait: 100ms
      max_wait: 2s
  - id: answer
    type: llm
    prompt: "Answer: $input"
`)

	cfg, err := FromYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, "researcher", cfg.Name)
	assert.Equal(t, WorkflowConditional, cfg.Workflow)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Std())
	assert.Equal(t, []string{"calculator"}, cfg.Tools)

	calc, ok := cfg.Node("calc")
	require.True(t, ok)
	assert.Equal(t, "calculator", calc.Tool)
	require.NotNil(t, calc.Retry)
	assert.Equal(t, 3, calc.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, calc.Retry.MinWait.Std())

	classify, ok := cfg.Node("classify")
	require.True(t, ok)
	assert.Equal(t, "calc", classify.Branches["true"])
}

func TestFromJSONInvalid(t *testing.T) {
	_, err := FromJSON([]byte(`{"workflow_type":"sequential","nodes":[]}`))
	require.Error(t, err)

	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
}
