// Package escalation implements the ticket state machine that hands a user
// conversation over to a human expert.
//
// A ticket is not a stored record. Its existence and lifecycle are derived
// from the expert-channel conversation identifier and the state the ticket
// card was last rendered with. In-place card updates are addressed through a
// correlation token appended to the conversation identifier on the first
// claim or close -- the message identifier needed to build the token is only
// known once the card has actually been posted.
package escalation

import (
	"context"
	"fmt"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/card"
	"github.com/faqdesk/faqdesk/internal/history"
)

// Lifecycle labels rendered on ticket cards. Transitions only move forward:
// New -> InProgress -> Closed, with Closed terminal.
const (
	LifecycleNew        = "New"
	LifecycleInProgress = "In progress"
	LifecycleClosed     = "Closed"
)

// Conversations is the outbound conversation surface of the messaging
// platform.
type Conversations interface {
	// SendActivity posts an activity into a conversation and returns the
	// identifier of the posted activity.
	SendActivity(ctx context.Context, conversationID string, act *activity.Activity) (string, error)

	// UpdateActivity replaces a previously posted activity in place.
	UpdateActivity(ctx context.Context, conversationID, activityID string, act *activity.Activity) error

	// CreateConversation creates a new conversation carrying an initial
	// activity and returns its identifier.
	CreateConversation(ctx context.Context, params activity.ConversationParams) (string, error)
}

// Directory resolves conversation participants to their profiles.
type Directory interface {
	Member(ctx context.Context, conversationID, userID string) (*activity.Member, error)
}

// Coordinator drives the escalation lifecycle. The user-facing transport
// and the expert-channel transport are injected separately so a request
// arriving on one front-end can open a ticket on another.
type Coordinator struct {
	user          Conversations
	expert        Conversations
	directory     Directory
	expertChannel string
	botID         string
}

// New creates a Coordinator. expertChannel is the fixed channel tickets are
// posted into; botID identifies the bot account on created conversations.
func New(user, expert Conversations, directory Directory, expertChannel, botID string) *Coordinator {
	return &Coordinator{
		user:          user,
		expert:        expert,
		directory:     directory,
		expertChannel: expertChannel,
		botID:         botID,
	}
}

// RequestExpert opens a new ticket: it resolves the requester's directory
// profile, renders a "New" ticket card with the recent chat history, creates
// a group conversation in the expert channel with that card as the first
// message, and acknowledges the requester.
//
// A directory failure aborts the whole action; conversation creation and the
// first post are a single platform call, so a failure there leaves nothing
// half-created.
func (c *Coordinator) RequestExpert(ctx context.Context, act *activity.Activity, conv *history.Conversation) error {
	member, err := c.directory.Member(ctx, act.Conversation.ID, act.From.ID)
	if err != nil {
		return fmt.Errorf("looking up requester %s: %w", act.From.ID, err)
	}

	lines := history.RenderLines(conv.ChatHistory)
	ticket := card.RenderTicket(member.PrincipalName, act.From.Name, lines, LifecycleNew)

	params := activity.ConversationParams{
		ChannelData: &activity.ChannelData{Channel: &activity.ChannelInfo{ID: c.expertChannel}},
		IsGroup:     true,
		Bot:         &activity.ChannelAccount{ID: c.botID},
		Activity:    activity.NewCardMessage(ticket),
	}

	// The created conversation's identifier is deliberately ignored: no
	// further coordination happens on this path. Correlation is established
	// lazily when an agent first acts on the posted card.
	if _, err := c.expert.CreateConversation(ctx, params); err != nil {
		return fmt.Errorf("creating expert conversation: %w", err)
	}

	_, err = c.user.SendActivity(ctx, act.Conversation.ID, activity.NewMessage(
		"I'm connecting you to an expert. In the meantime, would you like to ask me anything else?"))
	if err != nil {
		return fmt.Errorf("acknowledging requester: %w", err)
	}
	return nil
}

// ClaimTicket moves a ticket to In progress: the card is re-rendered in
// place with the claiming agent's identity, the correlation token is applied
// if not already present, and a status line names the agent.
//
// A claim on an already-closed ticket is a no-op; Closed is terminal.
func (c *Coordinator) ClaimTicket(ctx context.Context, act *activity.Activity, payload activity.ClaimTicket) error {
	if payload.Lifecycle == LifecycleClosed {
		return nil
	}

	updated := card.RenderTicket(payload.UserPrincipalName, payload.UserName, payload.ChatItems, LifecycleInProgress)
	if err := c.expert.UpdateActivity(ctx, act.Conversation.ID, act.ReplyToID, activity.NewCardMessage(updated)); err != nil {
		return fmt.Errorf("updating ticket card: %w", err)
	}

	c.applyCorrelation(act)

	_, err := c.expert.SendActivity(ctx, act.Conversation.ID, activity.NewMessage(
		fmt.Sprintf("%s is resolving the request.", act.From.Name)))
	if err != nil {
		return fmt.Errorf("posting claim status: %w", err)
	}
	return nil
}

// CloseTicket terminates a ticket: the card is re-rendered with the closed
// template, the correlation token is applied if not already present, and a
// status line names the closer.
func (c *Coordinator) CloseTicket(ctx context.Context, act *activity.Activity, payload activity.CloseTicket) error {
	if payload.Lifecycle == LifecycleClosed {
		return nil
	}

	updated := card.RenderClosed(payload.UserName, payload.ChatItems)
	if err := c.expert.UpdateActivity(ctx, act.Conversation.ID, act.ReplyToID, activity.NewCardMessage(updated)); err != nil {
		return fmt.Errorf("updating ticket card: %w", err)
	}

	c.applyCorrelation(act)

	_, err := c.expert.SendActivity(ctx, act.Conversation.ID, activity.NewMessage(
		fmt.Sprintf("%s closed the request.", act.From.Name)))
	if err != nil {
		return fmt.Errorf("posting close status: %w", err)
	}
	return nil
}

// applyCorrelation rewrites the activity's conversation identifier to carry
// the correlation token derived from the channel and the reply-target
// message. The rewrite is apply-once; an existing token is never
// overwritten.
func (c *Coordinator) applyCorrelation(act *activity.Activity) {
	if HasCorrelation(act.Conversation.ID) {
		return
	}
	channelID := act.Conversation.ID
	if act.ChannelData != nil && act.ChannelData.Channel != nil {
		channelID = act.ChannelData.Channel.ID
	}
	act.Conversation.ID = EncodeCorrelation(act.Conversation.ID, channelID, act.ReplyToID)
}
