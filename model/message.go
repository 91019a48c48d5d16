package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Part is one ordered unit of message content. Exactly one field is set.
type Part struct {
	Text       string
	Reasoning  string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// Message is a role-tagged unit of conversation. Messages are immutable
// once constructed; new information arrives as new messages, never by
// mutating history in place.
type Message struct {
	ID        string
	Role      Role
	Parts     []Part
	Timestamp time.Time
}

// NewMessage creates a message with a single text part and a fresh id.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Parts:     []Part{{Text: text}},
		Timestamp: time.Now(),
	}
}

// NewToolResultMessage wraps a tool result as a tool-role message.
func NewToolResultMessage(result ToolResult) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleTool,
		Parts:     []Part{{ToolResult: &result}},
		Timestamp: time.Now(),
	}
}

// Text returns the concatenation of all text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

// Reasoning returns the concatenation of all reasoning parts.
func (m Message) Reasoning() string {
	var out string
	for _, p := range m.Parts {
		out += p.Reasoning
	}
	return out
}

// ToolCalls returns the tool-call requests carried by this message.
func (m Message) ToolCalls() []*ToolCall {
	var calls []*ToolCall
	for _, p := range m.Parts {
		if p.ToolCall != nil {
			calls = append(calls, p.ToolCall)
		}
	}
	return calls
}

// ToolResult returns the first tool result carried by this message, or nil.
func (m Message) ToolResult() *ToolResult {
	for _, p := range m.Parts {
		if p.ToolResult != nil {
			return p.ToolResult
		}
	}
	return nil
}
