package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"seqassist/model"
	"seqassist/tools"
)

// OllamaProvider implements model.Provider against a local Ollama
// server. Ollama needs no credential, and its models emit reasoning
// inline in the text stream (see InlineReasoning).
type OllamaProvider struct {
	client      *api.Client
	model       string
	temperature float64
}

// NewOllamaProvider creates an Ollama provider. baseURL defaults to
// the local server.
func NewOllamaProvider(baseURL, modelID string, temperature float64) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelID == "" {
		modelID = "llama3.1:latest"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}

	return &OllamaProvider{
		client:      api.NewClient(parsed, http.DefaultClient),
		model:       modelID,
		temperature: temperature,
	}, nil
}

// Chat implements model.Provider.
func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements model.Provider with streaming support.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	stream := true
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: convertToOllamaMessages(messages),
		Stream:   &stream,
		Options:  map[string]any{"temperature": p.temperature},
	}
	if len(mcpTools) > 0 {
		req.Tools = tools.ConvertToOllama(mcpTools)
	}

	respFunc := func(resp api.ChatResponse) error {
		if callback == nil {
			return nil
		}
		return callback(resp.Message.Content, convertOllamaToolCalls(resp.Message.ToolCalls))
	}

	if err := p.client.Chat(ctx, req, respFunc); err != nil {
		return fmt.Errorf("Ollama chat error: %w", err)
	}
	return nil
}

// ListModels implements model.Provider. The modification date stands
// in for a creation date; Ollama reports no other.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list Ollama models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		result = append(result, model.ModelInfo{
			ID:          m.Name,
			DisplayName: m.Name,
			Created:     m.ModifiedAt,
			Provider:    string(IDOllama),
		})
	}
	return result, nil
}

// Model implements model.Provider.
func (p *OllamaProvider) Model() string { return p.model }

// SetModel implements model.Provider.
func (p *OllamaProvider) SetModel(modelID string) { p.model = modelID }

// Ping implements model.Provider with a short timeout; the server is
// local and either answers immediately or not at all.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}

func convertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		out := api.Message{
			Role:    string(msg.Role),
			Content: msg.Text(),
		}
		if res := msg.ToolResult(); res != nil {
			out.Role = "tool"
			out.Content = res.Content
		}
		for _, call := range msg.ToolCalls() {
			args, err := call.Arguments()
			if err != nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      call.Name,
					Arguments: api.ToolCallFunctionArguments(args),
				},
			})
		}
		result = append(result, out)
	}
	return result
}

// convertOllamaToolCalls lifts Ollama tool calls into the internal
// form. Ollama assigns no call ids, so the agent synthesizes them; the
// argument map is re-serialized into the accumulating text buffer the
// rest of the pipeline expects.
func convertOllamaToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}
	result := make([]model.ToolCall, 0, len(ollamaCalls))
	for _, call := range ollamaCalls {
		args := "{}"
		if raw, err := json.Marshal(call.Function.Arguments); err == nil {
			args = string(raw)
		}
		result = append(result, model.ToolCall{
			Name:          call.Function.Name,
			ArgumentsText: args,
		})
	}
	return result
}
