package tools

import "context"

// Interrupt is emitted into the agent's part stream when a tool
// suspends for a human decision. The UI renders the payload, collects
// a decision and delivers it through Resume.
type Interrupt struct {
	ToolCallID string
	Payload    any

	resume chan any
}

// Resume delivers the decision to the suspended tool call. Only the
// first call has any effect.
func (i *Interrupt) Resume(decision any) {
	select {
	case i.resume <- decision:
	default:
	}
}

// Human is the escape hatch handed to a tool handler running inside an
// agent turn. It suspends execution pending an external decision
// delivered out-of-band as an Interrupt event.
type Human struct {
	callID string
	emit   func(Interrupt) error
}

// NewHuman binds an interrupt emitter to one tool call. The agent
// constructs one per executed call.
func NewHuman(callID string, emit func(Interrupt) error) *Human {
	return &Human{callID: callID, emit: emit}
}

// Ask emits an interrupt carrying payload and blocks until the outside
// world resumes it or ctx is cancelled.
func (h *Human) Ask(ctx context.Context, payload any) (any, error) {
	intr := Interrupt{
		ToolCallID: h.callID,
		Payload:    payload,
		resume:     make(chan any, 1),
	}
	if err := h.emit(intr); err != nil {
		return nil, err
	}
	select {
	case decision := <-intr.resume:
		return decision, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
