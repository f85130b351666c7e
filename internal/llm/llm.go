// Package llm provides the model collaborator for the chat turn handler:
// provider clients (Anthropic, OpenAI) plus the Assistant, which assembles
// the knowledge-base prompt and the recent chat history into a completion
// request and reports the outcome in a status-tagged result.
package llm

import (
	"context"
	"fmt"

	"github.com/faqdesk/faqdesk/internal/history"
)

// Status tags the outcome of a completion.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Message is one chat message sent to or received from the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the outcome of a completion request. On StatusError, Error holds
// the upstream detail and Message is nil.
type Result struct {
	Status  Status
	Message *Message
	Error   string
}

// Completer is the model collaborator interface consumed by the chat turn
// handler.
type Completer interface {
	Complete(ctx context.Context, turns []history.Turn, userText string) *Result
}

// Client is a minimal provider interface: system prompt plus ordered chat
// messages in, assistant text out.
type Client interface {
	ChatComplete(ctx context.Context, system string, messages []Message) (string, error)
}

// CompletionError is the fatal turn error raised when the model collaborator
// reports a non-success status or empty content. It is not retried; it
// propagates to the dispatcher's error boundary.
type CompletionError struct {
	Detail string
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("model completion failed: %s", e.Detail)
}

// Assistant implements Completer on top of a provider Client and a fixed
// system prompt built from the knowledge base.
type Assistant struct {
	client Client
	system string
}

// NewAssistant creates an Assistant. The knowledge string is the
// concatenated knowledge-base content embedded into the system prompt.
func NewAssistant(client Client, knowledge string) *Assistant {
	return &Assistant{
		client: client,
		system: chatSystem(knowledge),
	}
}

// Complete replays the most recent history turns plus the new user text to
// the provider. Provider failures are reported in the result status rather
// than returned, matching the collaborator contract.
func (a *Assistant) Complete(ctx context.Context, turns []history.Turn, userText string) *Result {
	if len(turns) > history.DisplayLimit {
		turns = turns[len(turns)-history.DisplayLimit:]
	}

	messages := make([]Message, 0, len(turns)+1)
	for _, t := range turns {
		messages = append(messages, Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, Message{Role: history.RoleUser, Content: userText})

	text, err := a.client.ChatComplete(ctx, a.system, messages)
	if err != nil {
		return &Result{Status: StatusError, Error: err.Error()}
	}
	if text == "" {
		return &Result{Status: StatusError, Error: "empty completion"}
	}
	return &Result{
		Status:  StatusSuccess,
		Message: &Message{Role: history.RoleAssistant, Content: text},
	}
}

const chatSystemTemplate = `You are an FAQ assistant for this organization.
Answer the user's question using only the reference material below. Be
concise and direct. If the reference material does not cover the question,
say so and suggest the user talk to an expert.

## Reference Material
%s`

func chatSystem(knowledge string) string {
	return fmt.Sprintf(chatSystemTemplate, knowledge)
}
