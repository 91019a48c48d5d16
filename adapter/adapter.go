// Package adapter bridges the chat UI's message/run protocol to the
// agent's internal messages and part stream.
package adapter

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"seqassist/agent"
	"seqassist/provider"
	"seqassist/tools"
	"seqassist/vault"
)

// Status types and reasons of the run protocol.
const (
	StatusRunning    = "running"
	StatusIncomplete = "incomplete"
	StatusComplete   = "complete"

	ReasonCancelled = "cancelled"
	ReasonError     = "error"
	ReasonStop      = "stop"
)

// Status is the run state attached to every update.
type Status struct {
	Type   string
	Reason string
	Error  string // human-readable, only with ReasonError
}

// ToolCallView is the display state of one tool call, correlated by
// id and updated as arguments and finally a result arrive.
type ToolCallView struct {
	ID       string
	Name     string
	ArgsText string
	Result   string
	IsError  bool
	Artifact any
	Done     bool
}

// RunResult carries the full accumulated state of the turn, not a
// delta: the UI replaces its displayed content wholesale each update.
type RunResult struct {
	Text      string
	Reasoning string
	ToolCalls map[string]*ToolCallView
	Interrupt *tools.Interrupt // set on updates that carry a pending human decision
	Status    Status
}

// RunOptions is everything one turn needs from the UI.
type RunOptions struct {
	Messages     []ThreadMessage
	Tools        map[string]*tools.Tool
	SystemPrompt string
	Provider     provider.ID
	Model        string
	BaseURL      string
	Temperature  int
	Credentials  provider.CredentialResolver
}

// Adapter drives the agent for a UI. A single adapter handles
// sequential turns.
type Adapter struct {
	agent *agent.ChatAgent
	log   zerolog.Logger
}

// New creates an adapter around ag, logging to log (use zerolog.Nop()
// for silence).
func New(ag *agent.ChatAgent, log zerolog.Logger) *Adapter {
	return &Adapter{agent: ag, log: log}
}

// Run executes one turn and streams accumulated results. The returned
// channel always delivers exactly one terminal status — complete on
// success, incomplete with a reason on error or cancellation — and is
// then closed, so the UI never needs defensive unwinding around the
// consumer.
func (a *Adapter) Run(ctx context.Context, opts RunOptions) <-chan RunResult {
	out := make(chan RunResult, 1)
	go func() {
		defer close(out)
		a.run(ctx, opts, out)
	}()
	return out
}

func (a *Adapter) run(ctx context.Context, opts RunOptions, out chan<- RunResult) {
	acc := RunResult{
		ToolCalls: make(map[string]*ToolCallView),
		Status:    Status{Type: StatusRunning},
	}

	parts := a.agent.Stream(ctx, FromThreadMessages(opts.Messages), agent.StreamOptions{
		Tools:        opts.Tools,
		SystemPrompt: opts.SystemPrompt,
		Provider:     opts.Provider,
		Model:        opts.Model,
		BaseURL:      opts.BaseURL,
		Temperature:  opts.Temperature,
		Credentials:  opts.Credentials,
	})

	for part := range parts {
		if part.Err != nil {
			a.emit(ctx, out, terminal(part.Err, &a.log))
			return
		}
		acc.Interrupt = nil
		a.accumulate(&acc, part)
		if !a.emit(ctx, out, snapshot(acc)) {
			a.emit(ctx, out, RunResult{Status: Status{Type: StatusIncomplete, Reason: ReasonCancelled}})
			return
		}
	}

	if ctx.Err() != nil {
		a.emit(ctx, out, RunResult{Status: Status{Type: StatusIncomplete, Reason: ReasonCancelled}})
		return
	}

	acc.Status = Status{Type: StatusComplete, Reason: ReasonStop}
	a.emit(ctx, out, snapshot(acc))
}

// accumulate folds one agent part into the running state.
func (a *Adapter) accumulate(acc *RunResult, part agent.StreamPart) {
	switch {
	case part.Chunk != nil:
		acc.Text += part.Chunk.Text
		acc.Reasoning += part.Chunk.Reasoning

	case part.Update != nil:
		// assistant updates introduce tool calls; tool updates finish them
		for _, call := range part.Update.ToolCalls() {
			view, ok := acc.ToolCalls[call.ID]
			if !ok {
				view = &ToolCallView{ID: call.ID, Name: call.Name}
				acc.ToolCalls[call.ID] = view
			}
			view.ArgsText = call.ArgumentsText
		}
		if res := part.Update.ToolResult(); res != nil {
			view, ok := acc.ToolCalls[res.CallID]
			if !ok {
				view = &ToolCallView{ID: res.CallID, Name: res.Name}
				acc.ToolCalls[res.CallID] = view
			}
			view.Result = res.Content
			view.IsError = res.IsError
			view.Artifact = res.Artifact
			view.Done = true
		}

	case part.Interrupt != nil:
		acc.Interrupt = part.Interrupt
	}
}

// emit delivers a result unless ctx ends first; the channel's buffer
// lets the terminal status land even when the consumer has already
// stopped reading after a cancel.
func (a *Adapter) emit(ctx context.Context, out chan<- RunResult, res RunResult) bool {
	select {
	case out <- res:
		return true
	case <-ctx.Done():
		select {
		case out <- res:
		default:
		}
		return false
	}
}

// terminal classifies a turn-ending error. Cancellation — the abort
// signal or a dismissed unlock prompt — is a quiet terminal status,
// not a failure; everything else is logged and surfaced with a message
// the UI can display directly.
func terminal(err error, log *zerolog.Logger) RunResult {
	if errors.Is(err, context.Canceled) || errors.Is(err, vault.ErrCancelled) {
		return RunResult{Status: Status{Type: StatusIncomplete, Reason: ReasonCancelled}}
	}
	log.Error().Err(err).Msg("agent turn failed")
	return RunResult{Status: Status{
		Type:   StatusIncomplete,
		Reason: ReasonError,
		Error:  err.Error(),
	}}
}

// snapshot deep-copies the accumulated state so later mutation never
// races a UI still holding a previous update.
func snapshot(acc RunResult) RunResult {
	out := acc
	out.ToolCalls = make(map[string]*ToolCallView, len(acc.ToolCalls))
	for id, view := range acc.ToolCalls {
		copied := *view
		out.ToolCalls[id] = &copied
	}
	return out
}
