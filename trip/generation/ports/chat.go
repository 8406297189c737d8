package genports

import (
	"strings"
)

// Message roles accepted in a ChatContext.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single chat message used to build prompts.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatContext is an ordered message sequence assembled for one
// generation step. Ordering is part of the caller contract: memory
// context precedes summary-or-history, which precedes the new input.
type ChatContext struct {
	Messages []ChatMessage
}

// AddMessage appends a message. Unknown roles are dropped rather than
// stored, so a malformed caller cannot corrupt the sequence.
func (c *ChatContext) AddMessage(role, content string) {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		c.Messages = append(c.Messages, ChatMessage{Role: role, Content: content})
	}
}

// SystemMessage returns the first system message content, or "".
func (c *ChatContext) SystemMessage() string {
	for _, m := range c.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// UserMessages returns all user message contents in order.
func (c *ChatContext) UserMessages() []string {
	var out []string
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// FlattenPrompt renders the messages as a role-prefixed completion
// prompt terminated by an assistant cue.
func (c *ChatContext) FlattenPrompt() string {
	parts := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		parts = append(parts, titleRole(m.Role)+": "+m.Content)
	}
	return strings.Join(parts, "\n\n") + "\n\nAssistant:"
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
