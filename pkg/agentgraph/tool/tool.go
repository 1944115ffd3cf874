// Package tool defines the tool collaborator contract and a name-keyed
// registry that workflow nodes resolve tools from at runtime.
package tool

import "context"

// Tool is an external capability a workflow node can invoke.
// Implementations must be safe for concurrent use.
type Tool interface {
	// Name returns the unique tool name referenced by node configs.
	Name() string

	// Description returns a human-readable summary of the tool.
	Description() string

	// Invoke executes the tool with the given input and returns its result.
	Invoke(ctx context.Context, input map[string]any) (any, error)
}

// Func is a Tool backed by a plain function.
type Func struct {
	name        string
	description string
	fn          func(ctx context.Context, input map[string]any) (any, error)
}

// NewFunc creates a function-backed tool.
func NewFunc(name, description string, fn func(ctx context.Context, input map[string]any) (any, error)) *Func {
	if name == "" {
		panic("tool: name cannot be empty")
	}
	if fn == nil {
		panic("tool: function cannot be nil")
	}
	return &Func{name: name, description: description, fn: fn}
}

// Name implements Tool.
func (f *Func) Name() string { return f.name }

// Description implements Tool.
func (f *Func) Description() string { return f.description }

// Invoke implements Tool.
func (f *Func) Invoke(ctx context.Context, input map[string]any) (any, error) {
	return f.fn(ctx, input)
}
