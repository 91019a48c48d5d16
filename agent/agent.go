package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"seqassist/model"
	"seqassist/provider"
	"seqassist/tools"
)

// StreamPart is one element of the agent's output sequence. Exactly
// one field is set:
//
//   - Chunk: a parsed increment of streamed model output
//   - Update: a newly completed message (assistant turn or tool result)
//   - Interrupt: a tool suspended pending a human decision
//   - Err: the turn failed; no further parts follow
type StreamPart struct {
	Chunk     *Chunk
	Update    *model.Message
	Interrupt *tools.Interrupt
	Err       error
}

// SetupFunc builds a provider for one turn. Swappable for tests.
type SetupFunc func(ctx context.Context, cfg provider.Config, resolve provider.CredentialResolver) (model.Provider, error)

// StreamOptions is the per-turn configuration. It is supplied fresh by
// the caller on every Stream; the agent never persists it.
type StreamOptions struct {
	Tools        map[string]*tools.Tool
	SystemPrompt string
	Provider     provider.ID
	Model        string
	BaseURL      string
	Temperature  int // 0..100, rescaled per provider
	Credentials  provider.CredentialResolver
}

// ChatAgent drives the execution graph: call the model, execute any
// tool calls it requests, feed the results back and repeat until the
// model answers with no outstanding calls.
//
// A single ChatAgent supports sequential turns with different tool
// sets; tool binding happens per Stream call and always reassigns.
// Nothing bounds the number of tool rounds: a model issuing calls
// forever loops forever, and cancellation via ctx is the mitigation.
type ChatAgent struct {
	parser   ResponseParser
	setup    SetupFunc
	log      zerolog.Logger
	bound    map[string]*tools.Tool
	mcpTools []mcptypes.Tool
}

// Option configures a ChatAgent.
type Option func(*ChatAgent)

// WithLogger wires a logger; the default is silent.
func WithLogger(log zerolog.Logger) Option {
	return func(a *ChatAgent) { a.log = log }
}

// WithSetup replaces the provider construction step, used by tests to
// script model behavior.
func WithSetup(setup SetupFunc) Option {
	return func(a *ChatAgent) { a.setup = setup }
}

// New creates a ChatAgent.
func New(opts ...Option) *ChatAgent {
	a := &ChatAgent{
		setup: provider.Setup,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stream runs one turn of the graph and returns a lazily produced part
// sequence. The channel is closed when the turn ends on any path;
// cancelling ctx stops in-flight provider calls and terminates the
// sequence without further parts.
func (a *ChatAgent) Stream(ctx context.Context, messages []model.Message, opts StreamOptions) <-chan StreamPart {
	out := make(chan StreamPart)
	go func() {
		defer close(out)
		a.run(ctx, messages, opts, out)
	}()
	return out
}

func (a *ChatAgent) run(ctx context.Context, messages []model.Message, opts StreamOptions, out chan<- StreamPart) {
	a.parser.Reset()

	llm, err := a.setup(ctx, provider.Config{
		ID:          opts.Provider,
		Model:       opts.Model,
		BaseURL:     opts.BaseURL,
		Temperature: opts.Temperature,
	}, opts.Credentials)
	if err != nil {
		emit(ctx, out, StreamPart{Err: err})
		return
	}
	if provider.InlineReasoning(opts.Provider) {
		a.parser.EnableReasoningParsing()
	}

	// rebind, never merge: a prior turn's tools must not leak in
	a.bound = opts.Tools
	a.mcpTools = tools.ToMCP(opts.Tools)

	state := model.AgentState{
		SystemPrompt: opts.SystemPrompt,
		Messages:     messages,
	}

	for {
		// agent node: invoke the model
		assistant, err := a.callModel(ctx, llm, &state, out)
		if err != nil {
			emit(ctx, out, StreamPart{Err: err})
			return
		}
		state.Append(assistant)
		if emit(ctx, out, StreamPart{Update: &assistant}) != nil {
			return
		}

		pending := assistant.ToolCalls()
		if len(pending) == 0 {
			break // end node
		}

		// tools node: execute every pending call, then loop back
		for _, result := range a.runTools(ctx, pending, out) {
			state.Append(result)
			result := result
			if emit(ctx, out, StreamPart{Update: &result}) != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}

	// flush anything still withheld so a trailing fragment of the
	// answer is never dropped
	if final, ok := a.parser.FinalChunk(); ok {
		emit(ctx, out, StreamPart{Chunk: &final})
	}
}

// callModel streams one provider invocation, emitting parsed chunks as
// they arrive and returning the completed assistant message.
func (a *ChatAgent) callModel(ctx context.Context, llm model.Provider, state *model.AgentState, out chan<- StreamPart) (model.Message, error) {
	var (
		raw   string
		calls []*model.ToolCall
		seen  = map[string]*model.ToolCall{}
	)

	cb := func(chunk string, toolCalls []model.ToolCall) error {
		if chunk != "" {
			raw += chunk
			if parsed := a.parser.Parse(chunk); !parsed.empty() {
				if err := emit(ctx, out, StreamPart{Chunk: &parsed}); err != nil {
					return err
				}
			}
		}
		for _, tc := range toolCalls {
			tc := tc
			if tc.ID == "" {
				tc.ID = uuid.NewString()
			}
			if existing, ok := seen[tc.ID]; ok {
				existing.ArgumentsText += tc.ArgumentsText
				continue
			}
			seen[tc.ID] = &tc
			calls = append(calls, &tc)
		}
		return nil
	}

	if err := llm.ChatWithTools(ctx, state.Conversation(), a.mcpTools, cb); err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		ID:   uuid.NewString(),
		Role: model.RoleAssistant,
	}
	if raw != "" {
		msg.Parts = append(msg.Parts, model.Part{Text: raw})
	}
	for _, call := range calls {
		msg.Parts = append(msg.Parts, model.Part{ToolCall: call})
	}
	return msg, nil
}

// runTools dispatches the round's calls concurrently and collects the
// result messages in completion order. Callers correlate by call id.
func (a *ChatAgent) runTools(ctx context.Context, calls []*model.ToolCall, out chan<- StreamPart) []model.Message {
	done := make(chan model.Message, len(calls))
	for _, call := range calls {
		go func(call model.ToolCall) {
			done <- a.execToolCall(ctx, call, out)
		}(*call)
	}

	results := make([]model.Message, 0, len(calls))
	for range calls {
		select {
		case msg := <-done:
			results = append(results, msg)
		case <-ctx.Done():
			// already-started tool calls finish on their own; we just
			// stop scheduling further model rounds
			return results
		}
	}
	return results
}

func (a *ChatAgent) execToolCall(ctx context.Context, call model.ToolCall, out chan<- StreamPart) model.Message {
	tool, ok := a.bound[call.Name]
	if !ok {
		return toolError(call, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args, err := call.Arguments()
	if err != nil {
		return toolError(call, fmt.Sprintf("invalid tool arguments: %v", err))
	}

	human := tools.NewHuman(call.ID, func(intr tools.Interrupt) error {
		return emit(ctx, out, StreamPart{Interrupt: &intr})
	})

	result, err := tool.Execute(ctx, args, human)
	if err != nil {
		a.log.Warn().Str("tool", call.Name).Err(err).Msg("tool call failed")
		return toolError(call, err.Error())
	}

	var artifact any
	if r, ok := result.(tools.Result); ok {
		result, artifact = r.Payload, r.Artifact
	}
	content, err := json.Marshal(result)
	if err != nil {
		return toolError(call, fmt.Sprintf("unserializable tool result: %v", err))
	}
	return model.NewToolResultMessage(model.ToolResult{
		CallID:   call.ID,
		Name:     call.Name,
		Content:  string(content),
		Artifact: artifact,
	})
}

func toolError(call model.ToolCall, msg string) model.Message {
	return model.NewToolResultMessage(model.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: msg,
		IsError: true,
	})
}

// emit delivers a part unless ctx is done first.
func emit(ctx context.Context, out chan<- StreamPart, part StreamPart) error {
	select {
	case out <- part:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
