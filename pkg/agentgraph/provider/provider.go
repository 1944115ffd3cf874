// Package provider defines the narrow LLM collaborator contract used by
// workflow nodes, plus the normalized message type exchanged with it.
// Concrete adapters for the official OpenAI and Anthropic SDKs live in
// the openai and anthropic subpackages.
package provider

import (
	"context"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a normalized conversation entry sent to or received from
// a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System creates a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Provider generates a completion for a conversation.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Invoke sends the conversation to the model and returns its reply.
	// The returned message has role "assistant".
	Invoke(ctx context.Context, messages []Message) (Message, error)
}

// Func adapts a plain function to the Provider interface.
// Useful for tests and deterministic providers.
type Func func(ctx context.Context, messages []Message) (Message, error)

// Invoke implements Provider.
func (f Func) Invoke(ctx context.Context, messages []Message) (Message, error) {
	return f(ctx, messages)
}

// Error wraps a failure from a provider backend.
type Error struct {
	// Provider is the backend name ("openai", "anthropic", ...).
	Provider string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}
