package model

// AgentState is the execution graph's working memory for one turn:
// the system prompt and an append-only message list. It is rebuilt
// fresh per turn from the caller-supplied history.
type AgentState struct {
	SystemPrompt string
	Messages     []Message
}

// Append grows the message list. The list only ever grows within one
// invocation.
func (s *AgentState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Conversation returns the messages sent to the provider: the system
// prompt (when set) prepended to the accumulated history.
func (s *AgentState) Conversation() []Message {
	if s.SystemPrompt == "" {
		return s.Messages
	}
	out := make([]Message, 0, len(s.Messages)+1)
	out = append(out, Message{Role: RoleSystem, Parts: []Part{{Text: s.SystemPrompt}}})
	return append(out, s.Messages...)
}
