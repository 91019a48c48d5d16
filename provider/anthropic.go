package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"seqassist/model"
	"seqassist/tools"
)

// AnthropicProvider implements model.Provider against the Anthropic
// API using the official Go SDK.
type AnthropicProvider struct {
	client      *anthropic.Client
	model       anthropic.Model
	temperature float64
}

// NewAnthropicProvider creates an Anthropic provider. The API key is
// required.
func NewAnthropicProvider(baseURL, apiKey, modelID string, temperature float64) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if modelID != "" {
		anthropicModel = anthropic.Model(modelID)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:      &client,
		model:       anthropicModel,
		temperature: temperature,
	}, nil
}

// Chat implements model.Provider.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements model.Provider with streaming support.
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	anthropicMessages, systemBlocks := convertToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       p.model,
		Messages:    anthropicMessages,
		MaxTokens:   4096, // required by the API
		Temperature: anthropic.Float(p.temperature),
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(mcpTools) > 0 {
		params.Tools = tools.ConvertToAnthropic(mcpTools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	msg := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("error accumulating message: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if callback != nil {
					if err := callback(deltaVariant.Text, nil); err != nil {
						return err
					}
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("Anthropic streaming error: %w", err)
	}

	// tool_use blocks arrive fully formed in the accumulated message
	if callback != nil {
		if calls := extractAnthropicToolCalls(msg.Content); len(calls) > 0 {
			return callback("", calls)
		}
	}
	return nil
}

// ListModels implements model.Provider via the models listing API.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list Anthropic models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		result = append(result, model.ModelInfo{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Created:     m.CreatedAt,
			Provider:    string(IDAnthropic),
		})
	}
	return result, nil
}

// Model implements model.Provider.
func (p *AnthropicProvider) Model() string { return string(p.model) }

// SetModel implements model.Provider.
func (p *AnthropicProvider) SetModel(modelID string) { p.model = anthropic.Model(modelID) }

// Ping implements model.Provider by attempting to list models.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

// convertToAnthropicMessages maps internal messages onto Anthropic
// params. System messages become system blocks (the API takes them as
// a separate parameter), assistant tool calls replay as tool_use
// blocks and tool results as tool_result blocks on a user message.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Text()})

		case model.RoleUser:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())),
			)

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := msg.Text(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range msg.ToolCalls() {
				var input any = map[string]any{}
				if args, err := call.Arguments(); err == nil {
					input = args
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: input,
					},
				})
			}
			if len(blocks) > 0 {
				anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(blocks...))
			}

		case model.RoleTool:
			res := msg.ToolResult()
			if res == nil {
				continue
			}
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(res.CallID, res.Content, res.IsError),
			))

		default:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())),
			)
		}
	}

	return anthropicMsgs, systemBlocks
}

// extractAnthropicToolCalls pulls tool_use blocks out of the
// accumulated message content.
func extractAnthropicToolCalls(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var calls []model.ToolCall
	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args := "{}"
		if raw, err := json.Marshal(toolUse.Input); err == nil {
			args = string(raw)
		}
		calls = append(calls, model.ToolCall{
			ID:            toolUse.ID,
			Name:          toolUse.Name,
			ArgumentsText: args,
		})
	}
	return calls
}
