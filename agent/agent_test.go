package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"seqassist/model"
	"seqassist/provider"
	"seqassist/tools"
)

// scriptTurn is one scripted model invocation: the text deltas to
// stream, then any tool calls to request.
type scriptTurn struct {
	chunks []string
	calls  []model.ToolCall
}

// scriptedProvider replays a fixed sequence of turns and records what
// it was asked, so tests can assert on conversation shape and bound
// tools without a live backend.
type scriptedProvider struct {
	mu            sync.Mutex
	turns         []scriptTurn
	conversations [][]model.Message
	toolSets      [][]mcptypes.Tool
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, cb model.StreamCallback) error {
	p.mu.Lock()
	p.conversations = append(p.conversations, messages)
	p.toolSets = append(p.toolSets, mcpTools)
	if len(p.turns) == 0 {
		p.mu.Unlock()
		return errors.New("script exhausted")
	}
	turn := p.turns[0]
	p.turns = p.turns[1:]
	p.mu.Unlock()

	for _, chunk := range turn.chunks {
		if err := cb(chunk, nil); err != nil {
			return err
		}
	}
	if len(turn.calls) > 0 {
		if err := cb("", turn.calls); err != nil {
			return err
		}
	}
	return nil
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []model.Message, cb model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, cb)
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return nil, nil
}
func (p *scriptedProvider) Model() string { return "scripted" }

func (p *scriptedProvider) SetModel(string) {}

func (p *scriptedProvider) Ping(ctx context.Context) error { return nil }

func scriptedSetup(p model.Provider) SetupFunc {
	return func(ctx context.Context, cfg provider.Config, resolve provider.CredentialResolver) (model.Provider, error) {
		return p, nil
	}
}

// collect drains a part stream to completion.
func collect(parts <-chan StreamPart) (text, reasoning string, updates []model.Message, errs []error) {
	for part := range parts {
		switch {
		case part.Chunk != nil:
			text += part.Chunk.Text
			reasoning += part.Chunk.Reasoning
		case part.Update != nil:
			updates = append(updates, *part.Update)
		case part.Err != nil:
			errs = append(errs, part.Err)
		}
	}
	return text, reasoning, updates, errs
}

func TestStreamZeroToolTermination(t *testing.T) {
	scripted := &scriptedProvider{turns: []scriptTurn{
		{chunks: []string{"Hel", "lo ", "World"}},
	}}
	agent := New(WithSetup(scriptedSetup(scripted)))

	parts := agent.Stream(context.Background(), []model.Message{
		model.NewMessage(model.RoleUser, "greet me"),
	}, StreamOptions{Provider: provider.IDOpenAI})

	text, _, updates, errs := collect(parts)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if text != "Hello World" {
		t.Errorf("streamed text = %q, want %q", text, "Hello World")
	}
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	if updates[0].Role != model.RoleAssistant || updates[0].Text() != "Hello World" {
		t.Errorf("assistant update = %+v", updates[0])
	}
	if len(scripted.conversations) != 1 {
		t.Errorf("provider invoked %d times, want 1", len(scripted.conversations))
	}
}

func TestStreamOneToolRoundTrip(t *testing.T) {
	scripted := &scriptedProvider{turns: []scriptTurn{
		{
			chunks: []string{"let me check"},
			calls: []model.ToolCall{
				{ID: "call-1", Name: "add", ArgumentsText: `{"a": 2, "b": 3}`},
			},
		},
		{chunks: []string{"the answer is 5"}},
	}}
	agent := New(WithSetup(scriptedSetup(scripted)))

	add := &tools.Tool{
		Name: "add",
		Execute: func(ctx context.Context, input map[string]any, human *tools.Human) (any, error) {
			return map[string]any{"sum": input["a"].(float64) + input["b"].(float64)}, nil
		},
	}

	parts := agent.Stream(context.Background(), []model.Message{
		model.NewMessage(model.RoleUser, "what is 2+3?"),
	}, StreamOptions{
		Provider:     provider.IDOpenAI,
		SystemPrompt: "be terse",
		Tools:        map[string]*tools.Tool{"add": add},
	})

	_, _, updates, errs := collect(parts)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	// assistant-with-call, tool result, final assistant
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	calls := updates[0].ToolCalls()
	if len(calls) != 1 || calls[0].ID != "call-1" || calls[0].Name != "add" {
		t.Fatalf("first update tool calls = %+v", calls)
	}

	result := updates[1].ToolResult()
	if result == nil || result.CallID != "call-1" || result.IsError {
		t.Fatalf("tool result update = %+v", updates[1])
	}
	var payload map[string]float64
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("tool result content %q: %v", result.Content, err)
	}
	if payload["sum"] != 5 {
		t.Errorf("sum = %v, want 5", payload["sum"])
	}

	if updates[2].Text() != "the answer is 5" {
		t.Errorf("final assistant text = %q", updates[2].Text())
	}

	// the second provider call must see system prompt, user, assistant
	// and tool messages in order
	if len(scripted.conversations) != 2 {
		t.Fatalf("provider invoked %d times, want 2", len(scripted.conversations))
	}
	roles := make([]model.Role, 0, 4)
	for _, msg := range scripted.conversations[1] {
		roles = append(roles, msg.Role)
	}
	want := []model.Role{model.RoleSystem, model.RoleUser, model.RoleAssistant, model.RoleTool}
	if len(roles) != len(want) {
		t.Fatalf("second conversation roles = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("second conversation roles = %v, want %v", roles, want)
		}
	}
}

func TestStreamUnknownToolReportsError(t *testing.T) {
	scripted := &scriptedProvider{turns: []scriptTurn{
		{calls: []model.ToolCall{{ID: "call-1", Name: "missing"}}},
		{chunks: []string{"recovered"}},
	}}
	agent := New(WithSetup(scriptedSetup(scripted)))

	_, _, updates, errs := collect(agent.Stream(context.Background(), nil, StreamOptions{
		Provider: provider.IDOpenAI,
	}))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	result := updates[1].ToolResult()
	if result == nil || !result.IsError {
		t.Fatalf("tool result = %+v, want error result", result)
	}
	if !strings.Contains(result.Content, "unknown tool") {
		t.Errorf("error content = %q", result.Content)
	}
}

func TestStreamToolRebinding(t *testing.T) {
	scripted := &scriptedProvider{turns: []scriptTurn{
		{chunks: []string{"ok"}},
		{chunks: []string{"ok"}},
	}}
	agent := New(WithSetup(scriptedSetup(scripted)))

	noop := func(ctx context.Context, input map[string]any, human *tools.Human) (any, error) {
		return nil, nil
	}
	first := map[string]*tools.Tool{"alpha": {Name: "alpha", Execute: noop}}
	second := map[string]*tools.Tool{"beta": {Name: "beta", Execute: noop}}

	collect(agent.Stream(context.Background(), nil, StreamOptions{Provider: provider.IDOpenAI, Tools: first}))
	collect(agent.Stream(context.Background(), nil, StreamOptions{Provider: provider.IDOpenAI, Tools: second}))

	if len(scripted.toolSets) != 2 {
		t.Fatalf("provider invoked %d times, want 2", len(scripted.toolSets))
	}
	// the second turn must advertise only the second set: binding
	// replaces, never merges
	if len(scripted.toolSets[1]) != 1 || scripted.toolSets[1][0].Name != "beta" {
		t.Errorf("second turn tools = %+v, want [beta]", scripted.toolSets[1])
	}
}

func TestStreamInlineReasoningByProvider(t *testing.T) {
	// the same marked-up output is parsed for a local-model provider
	// and passed through verbatim for a hosted one
	script := func() *scriptedProvider {
		return &scriptedProvider{turns: []scriptTurn{
			{chunks: []string{"<think>plan first</think>", "then answer"}},
		}}
	}

	agent := New(WithSetup(scriptedSetup(script())))
	text, reasoning, _, _ := collect(agent.Stream(context.Background(), nil, StreamOptions{
		Provider: provider.IDOllama,
	}))
	if reasoning != "plan first" {
		t.Errorf("ollama reasoning = %q, want %q", reasoning, "plan first")
	}
	if text != "then answer" {
		t.Errorf("ollama text = %q, want %q", text, "then answer")
	}

	agent = New(WithSetup(scriptedSetup(script())))
	text, reasoning, _, _ = collect(agent.Stream(context.Background(), nil, StreamOptions{
		Provider: provider.IDOpenAI,
	}))
	if reasoning != "" {
		t.Errorf("hosted reasoning = %q, want empty", reasoning)
	}
	if text != "<think>plan first</think>then answer" {
		t.Errorf("hosted text = %q", text)
	}
}

func TestStreamSetupFailure(t *testing.T) {
	wantErr := errors.New("no such provider")
	agent := New(WithSetup(func(ctx context.Context, cfg provider.Config, resolve provider.CredentialResolver) (model.Provider, error) {
		return nil, wantErr
	}))

	_, _, updates, errs := collect(agent.Stream(context.Background(), nil, StreamOptions{}))
	if len(updates) != 0 {
		t.Errorf("updates after setup failure: %+v", updates)
	}
	if len(errs) != 1 || !errors.Is(errs[0], wantErr) {
		t.Errorf("errs = %v, want [%v]", errs, wantErr)
	}
}

// blockingProvider parks in the provider call until ctx is cancelled,
// simulating a hung or long-running stream.
type blockingProvider struct {
	started chan struct{}
}

func (p *blockingProvider) ChatWithTools(ctx context.Context, messages []model.Message, mcpTools []mcptypes.Tool, cb model.StreamCallback) error {
	close(p.started)
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingProvider) Chat(ctx context.Context, messages []model.Message, cb model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, cb)
}
func (p *blockingProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return nil, nil
}
func (p *blockingProvider) Model() string { return "blocking" }

func (p *blockingProvider) SetModel(string) {}

func (p *blockingProvider) Ping(ctx context.Context) error { return nil }

func TestStreamCancellation(t *testing.T) {
	blocking := &blockingProvider{started: make(chan struct{})}
	agent := New(WithSetup(scriptedSetup(blocking)))

	ctx, cancel := context.WithCancel(context.Background())
	parts := agent.Stream(ctx, nil, StreamOptions{Provider: provider.IDOpenAI})

	<-blocking.started
	cancel()

	// the sequence must terminate; no completed messages may follow
	_, _, updates, errs := collect(parts)
	if len(updates) != 0 {
		t.Errorf("updates after cancellation: %+v", updates)
	}
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error after cancellation: %v", err)
		}
	}
}

func TestStreamHumanInterrupt(t *testing.T) {
	scripted := &scriptedProvider{turns: []scriptTurn{
		{calls: []model.ToolCall{{ID: "call-1", Name: "confirm", ArgumentsText: `{}`}}},
		{chunks: []string{"done"}},
	}}
	agent := New(WithSetup(scriptedSetup(scripted)))

	confirm := &tools.Tool{
		Name: "confirm",
		Execute: func(ctx context.Context, input map[string]any, human *tools.Human) (any, error) {
			return human.Ask(ctx, "delete everything?")
		},
	}

	parts := agent.Stream(context.Background(), nil, StreamOptions{
		Provider: provider.IDOpenAI,
		Tools:    map[string]*tools.Tool{"confirm": confirm},
	})

	var updates []model.Message
	for part := range parts {
		if part.Interrupt != nil {
			if part.Interrupt.ToolCallID != "call-1" {
				t.Errorf("interrupt call id = %q", part.Interrupt.ToolCallID)
			}
			if part.Interrupt.Payload != "delete everything?" {
				t.Errorf("interrupt payload = %v", part.Interrupt.Payload)
			}
			part.Interrupt.Resume("approved")
		}
		if part.Update != nil {
			updates = append(updates, *part.Update)
		}
		if part.Err != nil {
			t.Fatalf("unexpected error: %v", part.Err)
		}
	}

	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	result := updates[1].ToolResult()
	if result == nil || result.Content != `"approved"` {
		t.Fatalf("tool result after resume = %+v", result)
	}
}

func TestStreamToolArtifact(t *testing.T) {
	scripted := &scriptedProvider{turns: []scriptTurn{
		{calls: []model.ToolCall{{ID: "call-1", Name: "render", ArgumentsText: `{}`}}},
		{chunks: []string{"rendered"}},
	}}
	agent := New(WithSetup(scriptedSetup(scripted)))

	render := &tools.Tool{
		Name: "render",
		Execute: func(ctx context.Context, input map[string]any, human *tools.Human) (any, error) {
			return tools.Result{Payload: "ok", Artifact: []byte("png-bytes")}, nil
		},
	}

	_, _, updates, errs := collect(agent.Stream(context.Background(), nil, StreamOptions{
		Provider: provider.IDOpenAI,
		Tools:    map[string]*tools.Tool{"render": render},
	}))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	result := updates[1].ToolResult()
	if result == nil {
		t.Fatal("missing tool result")
	}
	if result.Content != `"ok"` {
		t.Errorf("payload content = %q", result.Content)
	}
	if string(result.Artifact.([]byte)) != "png-bytes" {
		t.Errorf("artifact = %v", result.Artifact)
	}
}
