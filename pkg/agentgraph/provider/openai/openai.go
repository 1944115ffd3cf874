// Package openai adapts the official OpenAI Chat Completions client to
// the provider.Provider contract.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/provider"
)

// Options configure the OpenAI adapter. Fields mirror a minimal subset
// of Chat Completion parameters; extend via functional options without
// breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind provider.Provider.
type Model struct {
	client *openai.Client
	opts   Options
}

var _ provider.Provider = (*Model)(nil)

// NewModel creates a new OpenAI provider using the official client.
// The client reads OPENAI_API_KEY from the environment.
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI provider from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Invoke implements provider.Provider.
func (m *Model) Invoke(ctx context.Context, messages []provider.Message) (provider.Message, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.Message{}, &provider.Error{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return provider.Message{}, &provider.Error{Provider: "openai", Err: fmt.Errorf("no choices returned")}
	}

	return provider.Assistant(resp.Choices[0].Message.Content), nil
}

// buildMessages converts normalized messages into OpenAI chat messages.
func buildMessages(messages []provider.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case provider.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case provider.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			// Unknown roles are treated as user input
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
