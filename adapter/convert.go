package adapter

import (
	"seqassist/model"
)

// ThreadMessage is the chat UI's wire form of one message: a role and
// an ordered list of typed content parts.
type ThreadMessage struct {
	ID      string
	Role    string
	Content []ThreadPart
}

// ThreadPart is one UI content part. Only "text" parts are understood
// by the core.
type ThreadPart struct {
	Type string // "text", "image", "audio", ...
	Text string
}

// FromThreadMessages converts UI messages into the internal form.
// Content-part kinds the internal model does not understand (images,
// audio) are silently filtered to text-only parts rather than
// rejecting the turn; multi-modal input degrades instead of failing.
func FromThreadMessages(messages []ThreadMessage) []model.Message {
	result := make([]model.Message, 0, len(messages))
	for _, tm := range messages {
		var parts []model.Part
		for _, part := range tm.Content {
			if part.Type != "text" {
				continue
			}
			parts = append(parts, model.Part{Text: part.Text})
		}

		role := model.Role(tm.Role)
		switch role {
		case model.RoleSystem, model.RoleUser, model.RoleAssistant:
		default:
			role = model.RoleUser
		}

		result = append(result, model.Message{
			ID:    tm.ID,
			Role:  role,
			Parts: parts,
		})
	}
	return result
}
