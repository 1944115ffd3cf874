package agent

import "github.com/randalmurphal/agentgraph/pkg/agentgraph/registry"

// Registry is an owned, name-keyed collection of built agents.
// Serving layers receive one explicitly instead of relying on ambient
// package state. It is safe for concurrent use.
type Registry struct {
	agents *registry.Registry[string, *Agent]
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: registry.New[string, *Agent]()}
}

// Register adds an agent under its configured name, replacing any
// previous registration.
func (r *Registry) Register(a *Agent) {
	r.agents.Register(a.Name(), a)
}

// Get returns the agent with the given name, or a *NotFoundError.
func (r *Registry) Get(name string) (*Agent, error) {
	a, ok := r.agents.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return a, nil
}

// Has reports whether an agent with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.agents.Has(name)
}

// Names returns the registered agent names.
// The order is not guaranteed.
func (r *Registry) Names() []string {
	return r.agents.Keys()
}
