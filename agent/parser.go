// Package agent hosts the conversational core: the incremental
// reasoning-marker parser and the model/tool execution graph.
package agent

import "strings"

// Inline reasoning markers. Some providers emit deliberation directly
// in the token stream between these literals instead of on a separate
// structured channel.
const (
	reasoningOpen  = "<think>"
	reasoningClose = "</think>"
)

// withhold is how many trailing characters stay buffered between
// fragments: one less than the longest marker, so a marker split across
// fragment boundaries can never slip through unclassified.
const withhold = max(len(reasoningOpen), len(reasoningClose)) - 1

type parserState int

const (
	stateText parserState = iota
	stateReasoning
)

// Chunk is one parsed increment of model output, split into its
// visible and reasoning contributions. Either or both may be empty.
type Chunk struct {
	Text      string
	Reasoning string
}

func (c Chunk) empty() bool { return c.Text == "" && c.Reasoning == "" }

// ResponseParser incrementally classifies a chunked token stream into
// visible answer text versus inline reasoning text. Marker search is a
// literal substring match; first occurrence wins; there is no escaping.
//
// The parser is the only mutable state that persists across chunks of
// one streamed turn. It must be Reset before each new turn and never
// shared between concurrently streaming turns.
type ResponseParser struct {
	buf     string
	state   parserState
	enabled bool
}

// Reset clears the buffer and flags. Called once per streamed turn
// before any fragment is processed. Idempotent.
func (p *ResponseParser) Reset() {
	p.buf = ""
	p.state = stateText
	p.enabled = false
}

// EnableReasoningParsing opts into marker scanning. When disabled,
// every fragment passes through unmodified as visible content.
func (p *ResponseParser) EnableReasoningParsing() {
	p.enabled = true
	p.state = stateText
}

// Parse consumes one fragment and returns the maximal visible and
// reasoning text that can be emitted now. The trailing withhold window
// stays buffered in case a marker is still forming at the boundary,
// except when a match resolves it.
func (p *ResponseParser) Parse(fragment string) Chunk {
	if !p.enabled {
		return Chunk{Text: fragment}
	}
	p.buf += fragment

	if p.state == stateReasoning {
		return p.parseInReasoning()
	}
	return p.parseInText()
}

func (p *ResponseParser) parseInReasoning() Chunk {
	var out Chunk
	end := strings.Index(p.buf, reasoningClose)
	if end == -1 {
		// no close marker yet: emit all but the tail window as reasoning
		if len(p.buf) > withhold {
			out.Reasoning = p.buf[:len(p.buf)-withhold]
			p.buf = p.buf[len(p.buf)-withhold:]
		}
		return out
	}
	out.Reasoning = p.buf[:end]
	after := p.buf[end+len(reasoningClose):]
	out.Text, p.buf = splitTail(after)
	p.state = stateText
	return out
}

func (p *ResponseParser) parseInText() Chunk {
	var out Chunk
	start := strings.Index(p.buf, reasoningOpen)
	if start == -1 {
		// no open marker: emit all but the tail window as visible text
		if len(p.buf) > withhold {
			out.Text = p.buf[:len(p.buf)-withhold]
			p.buf = p.buf[len(p.buf)-withhold:]
		}
		return out
	}

	before := p.buf[:start]
	inner := p.buf[start+len(reasoningOpen):]
	end := strings.Index(inner, reasoningClose)
	if end == -1 {
		// reasoning starts here but has not ended yet
		out.Reasoning, p.buf = splitTail(inner)
		out.Text = before
		p.state = stateReasoning
		return out
	}

	// a complete reasoning span sits inside the buffer
	out.Reasoning = inner[:end]
	after := inner[end+len(reasoningClose):]
	var emit string
	emit, p.buf = splitTail(after)
	out.Text = before + emit
	return out
}

// splitTail splits s into an emittable head and the withheld tail.
func splitTail(s string) (emit, keep string) {
	if len(s) > withhold {
		return s[:len(s)-withhold], s[len(s)-withhold:]
	}
	return s, ""
}

// FinalChunk flushes the residual withheld buffer after the stream
// ends, as reasoning or visible text depending on the current mode.
// Reports false when parsing is disabled or nothing is withheld.
func (p *ResponseParser) FinalChunk() (Chunk, bool) {
	if !p.enabled || len(p.buf) == 0 {
		return Chunk{}, false
	}
	buf := p.buf
	p.buf = ""
	if p.state == stateReasoning {
		return Chunk{Reasoning: buf}, true
	}
	return Chunk{Text: buf}, true
}
