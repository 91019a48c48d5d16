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
	"seqassist/tools"
)

// OpenAIProvider implements model.Provider against the official OpenAI
// API using the official Go SDK.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIProvider creates an OpenAI provider. The API key is
// required; baseURL and model fall back to sensible defaults.
func NewOpenAIProvider(baseURL, apiKey, modelID string, temperature float64) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if modelID == "" {
		modelID = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:      client,
		model:       modelID,
		temperature: temperature,
	}, nil
}

// Chat implements model.Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements model.Provider with streaming support.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	return streamChatCompletions(ctx, p.client, p.model, p.temperature, messages, mcpTools, callback)
}

// ListModels implements model.Provider. The raw listing includes
// embedding, audio and image models; only chat-capable name patterns
// are kept.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		if !isOpenAIChatModel(m.ID) {
			continue
		}
		result = append(result, model.ModelInfo{
			ID:          m.ID,
			DisplayName: m.ID,
			Created:     time.Unix(m.Created, 0),
			Provider:    string(IDOpenAI),
		})
	}
	return result, nil
}

// isOpenAIChatModel keeps chat-completion model families and drops
// embedding, audio, image and moderation entries from the listing.
func isOpenAIChatModel(id string) bool {
	for _, prefix := range []string{"gpt-", "chatgpt-", "o1", "o3", "o4"} {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// Model implements model.Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// SetModel implements model.Provider.
func (p *OpenAIProvider) SetModel(modelID string) { p.model = modelID }

// Ping implements model.Provider by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

// streamChatCompletions drives one streaming chat-completions request.
// Shared by the OpenAI and OpenRouter providers, whose wire protocol
// is identical.
func streamChatCompletions(ctx context.Context, client openai.Client, modelID string, temperature float64, messages []model.Message, mcpTools []mcptypes.Tool, callback model.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages:    convertToOpenAIMessages(messages),
		Model:       openai.ChatModel(modelID),
		Temperature: openai.Float(temperature),
	}
	if len(mcpTools) > 0 {
		params.Tools = tools.ConvertToOpenAI(mcpTools)
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if callback != nil {
				if err := callback(chunk.Choices[0].Delta.Content, nil); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("chat completions streaming error: %w", err)
	}

	// tool calls are reported once complete, with their caller ids
	if callback != nil && len(acc.Choices) > 0 {
		var calls []model.ToolCall
		for _, tc := range acc.Choices[0].Message.ToolCalls {
			if tc.Function.Name == "" {
				continue
			}
			calls = append(calls, model.ToolCall{
				ID:            tc.ID,
				Name:          tc.Function.Name,
				ArgumentsText: tc.Function.Arguments,
			})
		}
		if len(calls) > 0 {
			return callback("", calls)
		}
	}
	return nil
}

// convertToOpenAIMessages maps internal messages onto chat-completions
// params, carrying assistant tool calls and tool results through so a
// multi-round conversation replays faithfully.
func convertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Text()))

		case model.RoleUser:
			result = append(result, openai.UserMessage(msg.Text()))

		case model.RoleAssistant:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if text := msg.Text(); text != "" {
				asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(text),
				}
			}
			for _, call := range msg.ToolCalls() {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: call.ArgumentsText,
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})

		case model.RoleTool:
			res := msg.ToolResult()
			if res == nil {
				continue
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					ToolCallID: res.CallID,
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(res.Content),
					},
				},
			})

		default:
			result = append(result, openai.UserMessage(msg.Text()))
		}
	}
	return result
}
