package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is the current checkpoint envelope version. Unmarshal rejects
// envelopes written by a newer version.
const Version = 1

// ErrVersion indicates a checkpoint envelope this build cannot read.
var ErrVersion = errors.New("checkpoint: unsupported version")

// Checkpoint is the durable record of where a thread's run stands: the
// serialized agent state after a node executed, and which node runs
// next. A suspended human-input pause is a checkpoint whose NextNode is
// the suspending node itself, so resuming re-executes it with the
// answer merged in.
type Checkpoint struct {
	Version  int    `json:"version"`
	ThreadID string `json:"thread_id"`
	// Graph is the agent name the thread belongs to. Guards against
	// feeding one agent's thread to another.
	Graph     string    `json:"graph,omitempty"`
	NodeID    string    `json:"node_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// State is the JSON-serialized agent state after NodeID executed.
	State    json.RawMessage `json:"state"`
	NextNode string          `json:"next_node"`

	// Attempt and PrevNodeID situate the checkpoint within retries and
	// the execution path, for debugging suspended threads.
	Attempt    int    `json:"attempt"`
	PrevNodeID string `json:"prev_node_id,omitempty"`
}

// Option sets an optional envelope field at construction.
type Option func(*Checkpoint)

// WithGraph records the agent name the thread belongs to.
func WithGraph(name string) Option {
	return func(c *Checkpoint) { c.Graph = name }
}

// WithAttempt records the retry attempt number.
func WithAttempt(attempt int) Option {
	return func(c *Checkpoint) { c.Attempt = attempt }
}

// WithPrevNode records the node executed before this one.
func WithPrevNode(prevNodeID string) Option {
	return func(c *Checkpoint) { c.PrevNodeID = prevNodeID }
}

// New creates a checkpoint for the thread. State must already be
// JSON-serialized.
func New(threadID, nodeID string, sequence int, state []byte, nextNode string, opts ...Option) *Checkpoint {
	c := &Checkpoint{
		Version:   Version,
		ThreadID:  threadID,
		NodeID:    nodeID,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextNode:  nextNode,
		Attempt:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Marshal serializes the envelope to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint envelope, rejecting versions this
// build does not understand.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Version < 1 || c.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, c.Version)
	}
	return &c, nil
}
