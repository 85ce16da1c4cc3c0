package driven

import "context"

// LLMService provides language model generation for grounded answers.
// This is an optional service - when nil, retrieval still works but answers
// cannot be composed.
//
// Implementations may include:
//   - OpenAI (GPT-4, GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	// A leading "system" message, if present, is the system prompt.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream is Chat with incremental delivery: onToken receives each
	// text fragment as it arrives. The full reply is returned at the end.
	// An error from onToken aborts the stream.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onToken func(string) error) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
