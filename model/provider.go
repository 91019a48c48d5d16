package model

import (
	"context"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (Ollama, OpenAI,
// Anthropic, OpenRouter) behind provider-agnostic types.
//
// The interface lives in the model package, not the provider package,
// to avoid import cycles: provider implementations import model, and
// the agent can consume a Provider without importing them.
type Provider interface {
	// Chat sends messages and streams the response back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ChatWithTools sends messages with available tools and streams
	// back text deltas and any tool-call requests.
	ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error

	// ListModels returns the models this provider can chat with.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Model returns the currently selected model id.
	Model() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks that the provider is reachable with the configured
	// credentials.
	Ping(ctx context.Context) error
}

// StreamCallback receives each streamed text delta and any completed
// tool-call requests. A non-nil return aborts the stream.
type StreamCallback func(chunk string, toolCalls []ToolCall) error

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID          string
	DisplayName string
	Description string
	Created     time.Time // creation or last-modified date, provider-dependent
	Provider    string
}

// CreatedDisplay formats the model date for display, or "" when the
// provider reports none.
func (m ModelInfo) CreatedDisplay() string {
	if m.Created.IsZero() {
		return ""
	}
	return m.Created.Format("2006-01-02")
}
