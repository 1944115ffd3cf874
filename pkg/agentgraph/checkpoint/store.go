// Package checkpoint provides persistent run-state storage keyed by
// conversation thread, for crash recovery and human-input suspension.
package checkpoint

import "errors"

// Store persists the latest checkpoint per thread.
// Saving overwrites the thread's previous checkpoint; a thread's
// checkpoint always reflects the most recent completed node.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the checkpoint for a thread, replacing any existing one.
	Save(threadID string, data []byte) error

	// Load retrieves the thread's checkpoint.
	// Returns ErrNotFound if the thread has no checkpoint.
	Load(threadID string) ([]byte, error)

	// Delete removes the thread's checkpoint.
	// Returns nil if no checkpoint exists.
	Delete(threadID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
