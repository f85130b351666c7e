// Package history tracks the per-conversation chat log and renders it for
// display. It has zero dependencies on other faqdesk packages.
package history

import "unicode"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DisplayLimit is the maximum number of turns shown when a history is
// rendered. The backing log itself is never truncated.
const DisplayLimit = 10

// Turn is a single role-tagged message exchanged between user and assistant.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the per-conversation state blob persisted by the state
// store. ChatHistory is append-only; Clear resets it.
type Conversation struct {
	ChatHistory []Turn `json:"chat_history"`
}

// Append adds one turn to the chat log.
func (c *Conversation) Append(role, content string) {
	c.ChatHistory = append(c.ChatHistory, Turn{Role: role, Content: content})
}

// Clear drops the entire chat log.
func (c *Conversation) Clear() {
	c.ChatHistory = nil
}

// RenderLines formats the most recent DisplayLimit turns as display lines of
// the form "Role: content" with the role capitalized. An empty or nil log
// renders as an empty slice.
func RenderLines(turns []Turn) []string {
	if len(turns) > DisplayLimit {
		turns = turns[len(turns)-DisplayLimit:]
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, capitalize(t.Role)+": "+t.Content)
	}
	return lines
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
