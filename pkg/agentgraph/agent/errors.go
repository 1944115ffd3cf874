package agent

import (
	"errors"
	"fmt"
	"time"
)

// ErrProviderRequired indicates the config declares LLM nodes but the
// builder was given no provider.
var ErrProviderRequired = errors.New("agent: llm nodes require a provider")

// ErrNoCheckpointStore indicates Resume was called on an agent built
// without a checkpoint store.
var ErrNoCheckpointStore = errors.New("agent: no checkpoint store configured")

// HandlerNotFoundError indicates a custom node references a handler that
// was not bound at build time.
type HandlerNotFoundError struct {
	// Name is the unresolved handler name.
	Name string
}

// Error implements the error interface.
func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("handler not found: %s", e.Name)
}

// TimeoutError indicates a node or run exceeded its configured deadline.
type TimeoutError struct {
	// NodeID is the node that was executing when the deadline passed.
	NodeID string
	// Timeout is the configured deadline.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %s timed out after %s", e.NodeID, e.Timeout)
}

// NotFoundError indicates a registry lookup for an unknown agent name.
type NotFoundError struct {
	// Name is the missing agent name.
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent not found: %s", e.Name)
}
