package agent

import (
	"strings"
	"testing"
)

// feed runs fragments through a fresh parser with reasoning parsing
// enabled and returns the aggregate visible and reasoning output,
// including the final flush.
func feed(fragments []string) (text, reasoning string) {
	p := &ResponseParser{}
	p.Reset()
	p.EnableReasoningParsing()
	for _, fragment := range fragments {
		chunk := p.Parse(fragment)
		text += chunk.Text
		reasoning += chunk.Reasoning
	}
	if final, ok := p.FinalChunk(); ok {
		text += final.Text
		reasoning += final.Reasoning
	}
	return text, reasoning
}

func TestParseResponseScenario(t *testing.T) {
	// the canonical marker-straddling case: both markers split across
	// fragment boundaries
	text, reasoning := feed([]string{"Hello <thi", "nk>because X</thin", "k>World"})
	if text != "Hello World" {
		t.Errorf("visible text = %q, want %q", text, "Hello World")
	}
	if reasoning != "because X" {
		t.Errorf("reasoning = %q, want %q", reasoning, "because X")
	}
}

func TestParseResponseAggregates(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantText      string
		wantReasoning string
	}{
		{
			name:     "no markers",
			input:    "plain answer with no deliberation",
			wantText: "plain answer with no deliberation",
		},
		{
			name:          "single span",
			input:         "before <think>hidden</think> after",
			wantText:      "before  after",
			wantReasoning: "hidden",
		},
		{
			name:          "leading span",
			input:         "<think>plan first</think>then answer",
			wantText:      "then answer",
			wantReasoning: "plan first",
		},
		{
			name:          "unterminated span flushes as reasoning",
			input:         "answer <think>still thinking",
			wantText:      "answer ",
			wantReasoning: "still thinking",
		},
		{
			name:     "empty input",
			input:    "",
			wantText: "",
		},
		{
			name:          "empty span",
			input:         "a<think></think>b",
			wantText:      "ab",
			wantReasoning: "",
		},
		{
			name:          "input shorter than withhold window",
			input:         "hi",
			wantText:      "hi",
			wantReasoning: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, reasoning := feed([]string{tt.input})
			if text != tt.wantText {
				t.Errorf("visible text = %q, want %q", text, tt.wantText)
			}
			if reasoning != tt.wantReasoning {
				t.Errorf("reasoning = %q, want %q", reasoning, tt.wantReasoning)
			}
		})
	}
}

// Splitting a fixed input at every possible boundary must produce
// identical aggregates: the parser is idempotent to chunking.
func TestParseResponseChunkingIdempotence(t *testing.T) {
	input := "intro <think>first thought</think> and then the closing remark"
	wantText, wantReasoning := feed([]string{input})
	if wantReasoning != "first thought" {
		t.Fatalf("reference reasoning = %q", wantReasoning)
	}

	for i := 0; i <= len(input); i++ {
		text, reasoning := feed([]string{input[:i], input[i:]})
		if text != wantText || reasoning != wantReasoning {
			t.Fatalf("split at %d: got (%q, %q), want (%q, %q)",
				i, text, reasoning, wantText, wantReasoning)
		}
	}

	// three-way splits across the marker region
	for i := 0; i < len(input); i++ {
		for j := i; j <= min(i+12, len(input)); j++ {
			text, reasoning := feed([]string{input[:i], input[i:j], input[j:]})
			if text != wantText || reasoning != wantReasoning {
				t.Fatalf("split at %d,%d: got (%q, %q), want (%q, %q)",
					i, j, text, reasoning, wantText, wantReasoning)
			}
		}
	}
}

func TestParseResponseDisabledPassesThrough(t *testing.T) {
	p := &ResponseParser{}
	p.Reset()

	input := "raw <think>untouched</think> text"
	var got string
	for _, fragment := range strings.SplitAfter(input, " ") {
		chunk := p.Parse(fragment)
		got += chunk.Text
		if chunk.Reasoning != "" {
			t.Errorf("reasoning emitted while disabled: %q", chunk.Reasoning)
		}
	}
	if got != input {
		t.Errorf("pass-through = %q, want %q", got, input)
	}
	if _, ok := p.FinalChunk(); ok {
		t.Error("FinalChunk reported residual data while disabled")
	}
}

func TestFinalChunkEmptyBuffer(t *testing.T) {
	p := &ResponseParser{}
	p.Reset()
	p.EnableReasoningParsing()
	if _, ok := p.FinalChunk(); ok {
		t.Error("FinalChunk reported data for an empty buffer")
	}
}

func TestResetClearsStateBetweenTurns(t *testing.T) {
	p := &ResponseParser{}
	p.Reset()
	p.EnableReasoningParsing()
	p.Parse("dangling <think>unfinished")

	// a new turn must not inherit the prior turn's mode or buffer
	p.Reset()
	p.EnableReasoningParsing()
	chunk := p.Parse("clean slate, nothing withheld beyond the window")
	if chunk.Reasoning != "" {
		t.Errorf("stale reasoning state leaked across Reset: %q", chunk.Reasoning)
	}
	text := chunk.Text
	if final, ok := p.FinalChunk(); ok {
		text += final.Text
	}
	if text != "clean slate, nothing withheld beyond the window" {
		t.Errorf("aggregate after reset = %q", text)
	}
}
