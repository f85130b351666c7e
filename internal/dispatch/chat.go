package dispatch

import (
	"context"
	"fmt"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/card"
	"github.com/faqdesk/faqdesk/internal/escalation"
	"github.com/faqdesk/faqdesk/internal/history"
	"github.com/faqdesk/faqdesk/internal/llm"
)

// ChatHandler forwards user messages to the model collaborator and renders
// the answer with an escalation action.
type ChatHandler struct {
	completer llm.Completer
	conv      escalation.Conversations
}

// NewChatHandler creates a ChatHandler sending answers over conv.
func NewChatHandler(completer llm.Completer, conv escalation.Conversations) *ChatHandler {
	return &ChatHandler{completer: completer, conv: conv}
}

// Handle submits the accumulated history and the new user text for
// completion. A non-success result or empty content is fatal to the turn and
// surfaces through the error boundary; nothing is appended to history in
// that case. On success the user and assistant turns are each appended
// exactly once.
func (h *ChatHandler) Handle(ctx context.Context, act *activity.Activity, conv *history.Conversation) error {
	result := h.completer.Complete(ctx, conv.ChatHistory, act.Text)
	if result.Status != llm.StatusSuccess {
		return &llm.CompletionError{Detail: result.Error}
	}
	if result.Message == nil || result.Message.Content == "" {
		return &llm.CompletionError{Detail: "response message is empty"}
	}

	conv.Append(history.RoleUser, act.Text)
	conv.Append(history.RoleAssistant, result.Message.Content)

	answer := card.RenderAnswer(result.Message.Content)
	if _, err := h.conv.SendActivity(ctx, act.Conversation.ID, activity.NewCardMessage(answer)); err != nil {
		return fmt.Errorf("sending answer: %w", err)
	}
	return nil
}
