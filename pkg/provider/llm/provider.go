// Package llm defines the Provider interface for Large Language Model backends.
//
// A provider wraps a remote or local chat-completion API (Gemini, OpenAI,
// Anthropic, a local Ollama instance, ...) and exposes the single request /
// response shape the agent loop needs: a message history plus tool
// definitions in, assistant text or tool calls out.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history, including any system
	// message at its head.
	Messages []Message

	// Tools is the set of function definitions offered to the model.
	Tools []ToolDefinition

	// Temperature controls output randomness in the range [0.0, 2.0].
	// Zero requests the provider's most deterministic decoding.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// SingleToolCall asks the model for at most one tool call per turn.
	// Backends without a parallel-tool-calls switch ignore it.
	SingleToolCall bool
}

// Finish reasons reported in [CompletionResponse.FinishReason]. Backends pass
// through values outside this set unchanged.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
)

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the assistant's reply text. Empty when the model responds
	// exclusively with tool calls.
	Content string

	// ToolCalls lists the tool invocations requested by the model, in the
	// order the provider returned them.
	ToolCalls []ToolCall

	// FinishReason is why the model stopped generating, as reported by the
	// backend. Empty when the backend does not say.
	FinishReason string

	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// It must return promptly once ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata about the underlying model.
	Capabilities() ModelCapabilities
}
