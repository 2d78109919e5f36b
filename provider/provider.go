package provider

import (
	"context"

	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/tool"
)

// Provider defines the interface for AI model providers (e.g., OpenAI).
// Implementations handle the specifics of communicating with a backend while
// maintaining a consistent interface for the orchestration loop.
type Provider interface {
	ChatCompletion(context.Context, CompletionParams) (<-chan StreamEvent, error)
}

// Model identifies a concrete model and the provider that serves it.
type Model interface {
	Name() string
	Provider() Provider
}

// CompletionParams encapsulates all parameters for a chat completion request.
type CompletionParams struct {
	// Messages is the full conversation context for this request, system
	// message first, in conversational order.
	Messages []messages.Message

	// Tools lists the capabilities the model may invoke. Empty on the
	// follow-up round after tool execution.
	Tools []tool.Definition

	// Model specifies which model serves this completion.
	Model Model

	// Stream indicates whether to receive the response as a stream of
	// chunks. When false, the provider emits a single complete chunk.
	Stream bool

	// Prevents unkeyed literals
	_ struct{}
}
