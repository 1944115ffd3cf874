package agentgraph

import (
	"fmt"
	"strings"
	"sync"
)

// endAliases are the spellings config documents and routers may use for
// the terminal node. NormalizeEnd maps them all onto END.
var endAliases = map[string]bool{
	"end":     true,
	"__end__": true,
}

// IsEnd reports whether id names the terminal node, in any accepted
// spelling ("end", "END", "__end__", case-insensitive).
func IsEnd(id string) bool {
	return endAliases[strings.ToLower(id)]
}

// NormalizeEnd maps any accepted END spelling onto the END sentinel and
// returns every other target unchanged. Edge targets and router results
// pass through this, so declarative configs can say "end" while the
// engine routes on one canonical value.
func NormalizeEnd(target string) string {
	if IsEnd(target) {
		return END
	}
	return target
}

// Graph assembles a workflow before compilation: named execution units
// plus the edges and routers that order them. Build it on one goroutine,
// then Compile into an immutable CompiledGraph that runs are dispatched
// against.
//
// Example:
//
//	graph := agentgraph.NewGraph[MyState]().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", agentgraph.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates an empty workflow builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// validNodeID rejects ids that would be unaddressable at run time:
// empty, an END spelling, or containing whitespace.
func validNodeID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("agentgraph: node id cannot be empty")
	case IsEnd(id):
		return fmt.Errorf("agentgraph: node id %q is reserved for the terminal node", id)
	case strings.ContainsAny(id, " \t\n\r"):
		return fmt.Errorf("agentgraph: node id %q cannot contain whitespace", id)
	}
	return nil
}

// AddNode registers a named execution unit. Returns the graph for
// chaining.
//
// Panics on an invalid id (see validNodeID), a nil function, or a
// duplicate id: these are programming errors in workflow assembly, not
// runtime conditions.
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if err := validNodeID(id); err != nil {
		panic(err.Error())
	}
	if fn == nil {
		panic(fmt.Sprintf("agentgraph: node %q has a nil function", id))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("agentgraph: duplicate node id %q", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge. The target may be a node id, END,
// or any END alias; aliases are normalized here so the compiled graph
// only ever carries the sentinel. Returns the graph for chaining.
//
// Endpoint existence is validated at Compile time, so edges may be added
// before the nodes they mention.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], NormalizeEnd(to))
	return g
}

// AddConditionalEdge attaches a router that picks the node's successor
// from the state at run time. Returns the graph for chaining.
//
// The router's result is normalized through NormalizeEnd and must then
// be a declared node id or END; anything else fails the run with a
// RouterError. A node with both a conditional edge and simple edges is
// routed by the conditional edge.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic(fmt.Sprintf("agentgraph: conditional edge from %q has a nil router", from))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the node a run starts at. Validated at Compile
// time. Returns the graph for chaining.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
