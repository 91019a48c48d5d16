package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"seqassist/model"
)

// OpenRouterProvider implements model.Provider against OpenRouter,
// whose API is OpenAI-compatible, through the official OpenAI Go SDK.
type OpenRouterProvider struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenRouterProvider creates an OpenRouter provider. The API key is
// required.
func NewOpenRouterProvider(baseURL, apiKey, modelID string, temperature float64) (*OpenRouterProvider, error) {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if modelID == "" {
		modelID = "meta-llama/llama-3.2-90b-instruct"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenRouterProvider{
		client:      client,
		model:       modelID,
		temperature: temperature,
	}, nil
}

// Chat implements model.Provider.
func (p *OpenRouterProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements model.Provider. Tool names are sanitized
// first: OpenRouter requires names matching ^[a-zA-Z0-9_-]{1,64}$, so
// dotted names become underscore-separated. Tool calls coming back
// carry the sanitized names, so they are restored to the originals
// before reaching the caller; tool calls are correlated by the names
// the caller bound, not the wire names.
func (p *OpenRouterProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	sanitized, original := sanitizeToolNames(mcpTools)
	return streamChatCompletions(ctx, p.client, p.model, p.temperature, messages, sanitized, restoreToolNames(callback, original))
}

// sanitizeToolNames rewrites dotted tool names ("host.navigate") into
// OpenRouter's allowed character set ("host__navigate"). The second
// return value maps each sanitized name back to the original for the
// return path.
func sanitizeToolNames(mcpTools []mcptypes.Tool) ([]mcptypes.Tool, map[string]string) {
	if len(mcpTools) == 0 {
		return nil, nil
	}
	converted := make([]mcptypes.Tool, len(mcpTools))
	original := make(map[string]string, len(mcpTools))
	for i, tool := range mcpTools {
		converted[i] = tool
		converted[i].Name = strings.ReplaceAll(tool.Name, ".", "__")
		original[converted[i].Name] = tool.Name
	}
	return converted, original
}

// restoreToolNames wraps a stream callback so tool calls named with
// the sanitized wire form are handed on under their original names.
// Names outside the table pass through unchanged.
func restoreToolNames(callback model.StreamCallback, original map[string]string) model.StreamCallback {
	if callback == nil || len(original) == 0 {
		return callback
	}
	return func(chunk string, toolCalls []model.ToolCall) error {
		for i, call := range toolCalls {
			if name, ok := original[call.Name]; ok {
				toolCalls[i].Name = name
			}
		}
		return callback(chunk, toolCalls)
	}
}

// ListModels implements model.Provider. OpenRouter model ids carry a
// vendor prefix ("meta-llama/..."); the display name strips it.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenRouter models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		display := m.ID
		if idx := strings.Index(display, "/"); idx >= 0 {
			display = display[idx+1:]
		}
		result = append(result, model.ModelInfo{
			ID:          m.ID,
			DisplayName: display,
			Created:     time.Unix(m.Created, 0),
			Provider:    string(IDOpenRouter),
		})
	}
	return result, nil
}

// Model implements model.Provider.
func (p *OpenRouterProvider) Model() string { return p.model }

// SetModel implements model.Provider.
func (p *OpenRouterProvider) SetModel(modelID string) { p.model = modelID }

// Ping implements model.Provider by attempting to list models.
func (p *OpenRouterProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenRouter ping failed: %w", err)
	}
	return nil
}
