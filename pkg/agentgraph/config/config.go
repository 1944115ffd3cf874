// Package config defines the declarative agent configuration model and
// its validation rules.
package config

import (
	"fmt"
	"strings"
	"time"
)

// NodeType identifies the behavior of a workflow node.
type NodeType string

// Supported node types.
const (
	NodeLLM         NodeType = "llm"
	NodeTool        NodeType = "tool"
	NodeConditional NodeType = "conditional"
	NodeHumanInput  NodeType = "human_input"
	NodeCustom      NodeType = "custom"
)

// WorkflowType selects the topology wiring strategy.
type WorkflowType string

// Supported workflow topologies.
const (
	WorkflowSequential  WorkflowType = "sequential"
	WorkflowParallel    WorkflowType = "parallel"
	WorkflowConditional WorkflowType = "conditional"
	WorkflowCyclic      WorkflowType = "cyclic"
	WorkflowCustom      WorkflowType = "custom"
)

// AgentConfig is the declarative description of an agent workflow.
// It is treated as immutable once validated; the builder never mutates it.
type AgentConfig struct {
	Name         string       `yaml:"name" json:"name"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Model        string       `yaml:"model,omitempty" json:"model,omitempty"`
	SystemPrompt string       `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Workflow     WorkflowType `yaml:"workflow_type" json:"workflow_type"`
	// Tools declares the agent's tool set by name. When non-empty, every
	// tool node must use a declared tool, and the builder requires every
	// declared tool to be registered.
	Tools      []string     `yaml:"tools,omitempty" json:"tools,omitempty"`
	Nodes      []NodeConfig `yaml:"nodes" json:"nodes"`
	Edges      []EdgeConfig `yaml:"edges,omitempty" json:"edges,omitempty"`
	EntryPoint string       `yaml:"entry_point,omitempty" json:"entry_point,omitempty"`

	// Execution limits
	MaxIterations int      `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
	Timeout       Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retry         *Retry   `yaml:"retry,omitempty" json:"retry,omitempty"`

	// Extra state keys beyond the engine's required set
	StateSchema []StateField `yaml:"state_schema,omitempty" json:"state_schema,omitempty"`

	// Observability toggles; nil means enabled
	EnableLogging *bool `yaml:"enable_logging,omitempty" json:"enable_logging,omitempty"`
	EnableMetrics *bool `yaml:"enable_metrics,omitempty" json:"enable_metrics,omitempty"`
	EnableTracing *bool `yaml:"enable_tracing,omitempty" json:"enable_tracing,omitempty"`
}

// NodeConfig describes a single workflow node.
type NodeConfig struct {
	ID   string   `yaml:"id" json:"id"`
	Type NodeType `yaml:"type" json:"type"`

	// LLM nodes
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`

	// Tool nodes
	Tool         string            `yaml:"tool,omitempty" json:"tool,omitempty"`
	InputMapping map[string]string `yaml:"input_mapping,omitempty" json:"input_mapping,omitempty"`

	// Conditional nodes
	Condition string            `yaml:"condition,omitempty" json:"condition,omitempty"`
	Branches  map[string]string `yaml:"branches,omitempty" json:"branches,omitempty"`

	// Custom nodes
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`

	// Per-node overrides
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retry   *Retry   `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// EdgeConfig describes an explicit edge between two nodes.
// An empty Condition means the edge is unconditional.
type EdgeConfig struct {
	From      string `yaml:"from" json:"from"`
	To        string `yaml:"to" json:"to"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Retry configures bounded exponential backoff for a node's execution.
type Retry struct {
	MaxAttempts int      `yaml:"max_attempts" json:"max_attempts"`
	MinWait     Duration `yaml:"min_wait,omitempty" json:"min_wait,omitempty"`
	MaxWait     Duration `yaml:"max_wait,omitempty" json:"max_wait,omitempty"`
}

// StateField declares an extra state key carried through the run.
type StateField struct {
	Name     string `yaml:"name" json:"name"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// DefaultMaxIterations is the iteration limit applied to cyclic workflows
// when the config does not set one.
const DefaultMaxIterations = 10

// MaxIterationsOrDefault returns the configured iteration limit, or
// DefaultMaxIterations when unset.
func (c *AgentConfig) MaxIterationsOrDefault() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return DefaultMaxIterations
}

// LoggingEnabled reports whether run logging is enabled (default true).
func (c *AgentConfig) LoggingEnabled() bool {
	return c.EnableLogging == nil || *c.EnableLogging
}

// MetricsEnabled reports whether metrics are enabled (default true).
func (c *AgentConfig) MetricsEnabled() bool {
	return c.EnableMetrics == nil || *c.EnableMetrics
}

// TracingEnabled reports whether tracing is enabled (default true).
func (c *AgentConfig) TracingEnabled() bool {
	return c.EnableTracing == nil || *c.EnableTracing
}

// Node returns the node config with the given ID and whether it exists.
func (c *AgentConfig) Node(id string) (NodeConfig, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeConfig{}, false
}

// Error reports every constraint an AgentConfig violates.
type Error struct {
	// Agent is the configured agent name (may be empty).
	Agent string
	// Violations lists each violated constraint.
	Violations []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	name := e.Agent
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("invalid agent config %s: %s", name, strings.Join(e.Violations, "; "))
}

// Validate checks the config against all structural constraints and
// returns an *Error listing every violation, or nil if the config is valid.
//
// Validation covers the config's internal consistency only. Bindings that
// depend on the runtime environment (tool registration, custom handlers,
// provider availability) are checked by the builder at build time.
func (c *AgentConfig) Validate() error {
	var violations []string

	if c.Name == "" {
		violations = append(violations, "name is required")
	}

	switch c.Workflow {
	case WorkflowSequential, WorkflowParallel, WorkflowConditional, WorkflowCyclic, WorkflowCustom:
	case "":
		violations = append(violations, "workflow_type is required")
	default:
		violations = append(violations, fmt.Sprintf("unknown workflow_type %q", c.Workflow))
	}

	if len(c.Nodes) == 0 {
		violations = append(violations, "at least one node is required")
	}

	toolSet := make(map[string]bool, len(c.Tools))
	for _, name := range c.Tools {
		if name == "" {
			violations = append(violations, "tools entries must not be empty")
			continue
		}
		if toolSet[name] {
			violations = append(violations, fmt.Sprintf("duplicate tool %q in tools list", name))
		}
		toolSet[name] = true
	}

	nodeIDs := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.ID == "" {
			violations = append(violations, "node id is required")
			continue
		}
		if nodeIDs[n.ID] {
			violations = append(violations, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		nodeIDs[n.ID] = true

		switch n.Type {
		case NodeLLM:
			if n.Prompt == "" {
				violations = append(violations, fmt.Sprintf("llm node %q requires a prompt", n.ID))
			}
		case NodeTool:
			if n.Tool == "" {
				violations = append(violations, fmt.Sprintf("tool node %q requires a tool name", n.ID))
			} else if len(c.Tools) > 0 && !toolSet[n.Tool] {
				violations = append(violations, fmt.Sprintf("tool node %q uses tool %q not declared in the tools list", n.ID, n.Tool))
			}
		case NodeConditional:
			if n.Condition == "" {
				violations = append(violations, fmt.Sprintf("conditional node %q requires a condition", n.ID))
			}
		case NodeHumanInput:
		case NodeCustom:
			if n.Handler == "" {
				violations = append(violations, fmt.Sprintf("custom node %q requires a handler name", n.ID))
			}
		default:
			violations = append(violations, fmt.Sprintf("node %q has unknown type %q", n.ID, n.Type))
		}

		if n.Retry != nil && n.Retry.MaxAttempts < 1 {
			violations = append(violations, fmt.Sprintf("node %q retry max_attempts must be >= 1", n.ID))
		}
	}

	if c.EntryPoint != "" && !nodeIDs[c.EntryPoint] {
		violations = append(violations, fmt.Sprintf("entry_point %q does not reference a declared node", c.EntryPoint))
	}

	switch c.Workflow {
	case WorkflowSequential, WorkflowParallel:
		if len(c.Edges) > 0 {
			violations = append(violations, fmt.Sprintf("%s workflow does not accept explicit edges", c.Workflow))
		}
	case WorkflowCustom:
		if len(c.Edges) == 0 {
			violations = append(violations, "custom workflow requires explicit edges")
		}
	}

	for _, e := range c.Edges {
		if !nodeIDs[e.From] {
			violations = append(violations, fmt.Sprintf("edge from %q does not reference a declared node", e.From))
		}
		if !isEndTarget(e.To) && !nodeIDs[e.To] {
			violations = append(violations, fmt.Sprintf("edge to %q does not reference a declared node", e.To))
		}
	}

	// Branch targets resolve against the full node set, so this runs
	// after all ids are collected.
	for _, n := range c.Nodes {
		if n.Type != NodeConditional {
			continue
		}
		for branch, target := range n.Branches {
			if !isEndTarget(target) && !nodeIDs[target] {
				violations = append(violations, fmt.Sprintf("conditional node %q branch %q targets undeclared node %q", n.ID, branch, target))
			}
		}
	}

	for _, f := range c.StateSchema {
		if f.Name == "" {
			violations = append(violations, "state_schema field name is required")
		}
	}

	if c.MaxIterations < 0 {
		violations = append(violations, "max_iterations must not be negative")
	}
	if c.Timeout < 0 {
		violations = append(violations, "timeout must not be negative")
	}

	if len(violations) > 0 {
		return &Error{Agent: c.Name, Violations: violations}
	}
	return nil
}

// isEndTarget reports whether an edge target names the terminal node.
func isEndTarget(to string) bool {
	switch strings.ToLower(to) {
	case "end", "__end__":
		return true
	}
	return false
}

// Duration is a time.Duration that unmarshals from either a duration
// string ("30s", "2m") or a bare number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		return d.set(parseDuration(s[1 : len(s)-1]))
	}
	var seconds float64
	if _, err := fmt.Sscanf(s, "%f", &seconds); err != nil {
		return fmt.Errorf("invalid duration %s", s)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Duration(d).String())), nil
}

func (d *Duration) set(parsed Duration, err error) error {
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func parseDuration(raw any) (Duration, error) {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", v, err)
		}
		return Duration(parsed), nil
	case int:
		return Duration(time.Duration(v) * time.Second), nil
	case int64:
		return Duration(time.Duration(v) * time.Second), nil
	case float64:
		return Duration(time.Duration(v * float64(time.Second))), nil
	default:
		return 0, fmt.Errorf("invalid duration value %v", raw)
	}
}
