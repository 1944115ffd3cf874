// Package state provides the shared mutable state container that flows
// through agent workflow graphs.
package state

import "fmt"

// Well-known state keys. Every state created by New carries these keys;
// merges never remove them.
const (
	KeyMessages         = "messages"
	KeyInput            = "input"
	KeyOutput           = "output"
	KeyCurrentNode      = "current_node"
	KeyError            = "error"
	KeyMetadata         = "metadata"
	KeyContext          = "context"
	KeyIterations       = "iterations"
	KeyToolsOutput      = "tools_output"
	KeyNeedsHumanInput  = "needs_human_input"
	KeyHumanInputPrompt = "human_input_prompt"
	KeyHumanInput       = "human_input"
)

// State is an open key/value container shared by all nodes in a run.
// It always carries the well-known keys and preserves any extra keys
// callers or custom nodes add.
//
// State serializes to JSON for checkpointing. After a JSON round trip,
// message entries become generic maps; Messages() normalizes them back.
type State map[string]any

// New creates a state with all well-known keys initialized to their
// zero values.
func New() State {
	return State{
		KeyMessages:         []Message{},
		KeyInput:            "",
		KeyOutput:           "",
		KeyCurrentNode:      "",
		KeyError:            nil,
		KeyMetadata:         map[string]any{},
		KeyContext:          map[string]any{},
		KeyIterations:       0,
		KeyToolsOutput:      map[string]any{},
		KeyNeedsHumanInput:  false,
		KeyHumanInputPrompt: "",
		KeyHumanInput:       nil,
	}
}

// Get returns the value for key, or def if the key is missing.
func (s State) Get(key string, def any) any {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// GetString returns the value for key as a string.
// Non-string values are formatted; missing or nil values return "".
func (s State) GetString(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", v)
}

// Set stores a value under key.
func (s State) Set(key string, value any) {
	s[key] = value
}

// Merge applies an update to the state and returns the merged result.
// The receiver is not modified.
//
// Merge semantics:
//   - "messages" in the update is APPENDED to the existing history,
//     never replaced. Message history is append-only.
//   - every other key is last-write-wins.
//   - keys absent from the update are preserved unchanged.
func (s State) Merge(update map[string]any) State {
	merged := s.Snapshot()
	for k, v := range update {
		if k == KeyMessages {
			merged[KeyMessages] = append(merged.Messages(), normalizeMessages(v)...)
			continue
		}
		merged[k] = copyValue(v)
	}
	return merged
}

// Snapshot returns an independent deep copy of the state.
// Mutating the copy never affects the original.
func (s State) Snapshot() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = copyValue(v)
	}
	return out
}

// Iterations returns the iteration counter.
// Handles the float64 representation produced by a JSON round trip.
func (s State) Iterations() int {
	switch v := s[KeyIterations].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// IncrementIterations bumps the iteration counter in place.
func (s State) IncrementIterations() {
	s[KeyIterations] = s.Iterations() + 1
}

// SetError records an error message under the error key.
func (s State) SetError(err error) {
	if err == nil {
		s[KeyError] = nil
		return
	}
	s[KeyError] = err.Error()
}

// NeedsHumanInput reports whether a node has requested human input.
func (s State) NeedsHumanInput() bool {
	b, _ := s[KeyNeedsHumanInput].(bool)
	return b
}

// copyValue deep-copies JSON-shaped values. Scalars are returned as-is.
func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []Message:
		out := make([]Message, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
