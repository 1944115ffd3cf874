package tool

import (
	"fmt"

	"github.com/randalmurphal/agentgraph/pkg/agentgraph/registry"
)

// NotFoundError indicates a node config references a tool that is not
// registered.
type NotFoundError struct {
	// Name is the missing tool name.
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// Registry is a name-keyed collection of tools.
// It is safe for concurrent use.
type Registry struct {
	tools *registry.Registry[string, Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: registry.New[string, Tool]()}
}

// Register adds a tool under its own name, replacing any previous
// registration.
func (r *Registry) Register(t Tool) {
	r.tools.Register(t.Name(), t)
}

// Get returns the tool with the given name, or a *NotFoundError.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t, nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.tools.Has(name)
}

// Names returns the registered tool names.
// The order is not guaranteed.
func (r *Registry) Names() []string {
	return r.tools.Keys()
}
