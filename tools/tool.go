// Package tools defines the contract for capabilities the agent can
// call on the model's behalf, plus the per-provider schema conversions
// needed to advertise them.
//
// A tool is an opaque capability supplied by the host application: the
// core never knows what "navigate" or "toggle track" means, only how to
// describe it to the model and execute it with validated arguments.
package tools

import (
	"context"
	"sort"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Handler executes one tool call. input is the parsed argument map.
// human is non-nil when the call runs inside an agent turn and lets the
// tool suspend for an out-of-band decision (see Human.Ask).
type Handler func(ctx context.Context, input map[string]any, human *Human) (any, error)

// Tool is a callable capability: a name, a human-readable description,
// a JSON-schema input contract and an async function from validated
// input to a JSON-serializable result.
type Tool struct {
	Name        string
	Description string
	InputSchema mcptypes.ToolInputSchema
	Render      string // optional rendering hint for the UI
	Execute     Handler
}

// MCP exposes the tool in MCP schema form, the representation the
// provider layer converts from.
func (t *Tool) MCP() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}

// ToMCP converts a tool set to MCP form in deterministic name order.
func ToMCP(set map[string]*Tool) []mcptypes.Tool {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]mcptypes.Tool, 0, len(names))
	for _, name := range names {
		out = append(out, set[name].MCP())
	}
	return out
}

// Result lets a tool return a UI-only artifact alongside the payload
// that is serialized back to the model.
type Result struct {
	Payload  any
	Artifact any
}

// ObjectSchema builds a minimal object input schema. Convenience for
// hosts defining tools inline.
func ObjectSchema(properties map[string]any, required ...string) mcptypes.ToolInputSchema {
	return mcptypes.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}
