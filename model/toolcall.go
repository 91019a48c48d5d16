package model

import "encoding/json"

// ToolCall is a structured request from the model to invoke a tool.
// It is created when the model first references the id, its arguments
// buffer accumulates token by token, and it is finalized when a result
// or error terminates it. Callers correlate results by id, never by
// position: tool calls within one round complete in arbitrary order.
type ToolCall struct {
	ID            string
	Name          string
	ArgumentsText string // raw JSON, accumulated as fragments arrive
}

// Arguments parses the accumulated arguments buffer. An empty buffer
// parses as an empty argument map.
func (c *ToolCall) Arguments() (map[string]any, error) {
	if c.ArgumentsText == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(c.ArgumentsText), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// ToolResult is the terminal outcome of one tool call.
type ToolResult struct {
	CallID   string
	Name     string
	Content  string // JSON-serialized payload, or a plain error string
	IsError  bool
	Artifact any // optional side-channel data for the UI, never sent to the model
}
