// Package dispatch routes inbound activities to their handlers and owns the
// per-conversation state lifecycle.
//
// Routes are evaluated in a fixed order and exactly one handler fires per
// activity: membership updates, then the reset command, then general
// messages, then named card actions. Conversation state is loaded before the
// handler runs and persisted only if the handler returns nil, so a failed
// turn leaves no partial state behind. Any handler error lands in the single
// error boundary, which logs it and sends a generic failure notice.
package dispatch

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/escalation"
	"github.com/faqdesk/faqdesk/internal/history"
)

// Store is the conversation state store consumed by the dispatcher.
type Store interface {
	LoadOrCreate(conversationID string) (*history.Conversation, error)
	Save(conversationID string, conv *history.Conversation) error
}

// Handler processes one activity against its loaded conversation state.
type Handler func(ctx context.Context, act *activity.Activity, conv *history.Conversation) error

type route struct {
	name   string
	match  func(*activity.Activity) bool
	handle Handler
}

// Dispatcher routes activities for one front-end.
type Dispatcher struct {
	store         Store
	conv          escalation.Conversations
	coordinator   *escalation.Coordinator
	chat          *ChatHandler
	expertChannel string

	routes []route

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Dispatcher wired to its collaborators. conv is the transport
// used for welcome messages, reset confirmations, and error notices on this
// front-end.
func New(store Store, conv escalation.Conversations, chat *ChatHandler, coordinator *escalation.Coordinator, expertChannel string) *Dispatcher {
	d := &Dispatcher{
		store:         store,
		conv:          conv,
		coordinator:   coordinator,
		chat:          chat,
		expertChannel: expertChannel,
		locks:         make(map[string]*sync.Mutex),
	}
	d.routes = []route{
		{name: "membersAdded", match: isMembersAdded, handle: d.handleMembersAdded},
		{name: "reset", match: isReset, handle: d.handleReset},
		{name: "message", match: isMessage, handle: d.chat.Handle},
		{name: "action", match: isActionSubmit, handle: d.handleAction},
	}
	return d
}

// Dispatch processes one inbound activity to completion. Turns for the same
// conversation are serialized; ordering across conversations is not
// constrained.
func (d *Dispatcher) Dispatch(ctx context.Context, act *activity.Activity) {
	// Claim and close rewrite the activity's conversation identifier, so
	// the state key is captured before any handler runs.
	key := act.Conversation.ID

	unlock := d.lockConversation(key)
	defer unlock()

	conv, err := d.store.LoadOrCreate(key)
	if err != nil {
		d.fail(ctx, key, err)
		return
	}

	for _, r := range d.routes {
		if !r.match(act) {
			continue
		}
		if err := r.handle(ctx, act, conv); err != nil {
			d.fail(ctx, key, err)
			return
		}
		if err := d.store.Save(key, conv); err != nil {
			log.Printf("dispatch: saving conversation %s: %v", key, err)
		}
		return
	}
}

// fail is the top-level error boundary: record the error, notify the user.
// No handler-specific recovery, no retry.
func (d *Dispatcher) fail(ctx context.Context, conversationID string, err error) {
	log.Printf("dispatch: turn error in conversation %s: %v", conversationID, err)
	if _, sendErr := d.conv.SendActivity(ctx, conversationID,
		activity.NewMessage("The bot encountered an error or bug.")); sendErr != nil {
		log.Printf("dispatch: sending failure notice: %v", sendErr)
	}
}

// lockConversation serializes turns per conversation identifier. The state
// store assumes a single writer per key; the platform is not trusted to
// deliver at most one in-flight turn per conversation.
func (d *Dispatcher) lockConversation(id string) func() {
	d.mu.Lock()
	m, ok := d.locks[id]
	if !ok {
		m = &sync.Mutex{}
		d.locks[id] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// --- Route predicates ---

func isMembersAdded(act *activity.Activity) bool {
	return act.Type == activity.TypeConversationUpdate && len(act.MembersAdded) > 0
}

// isReset matches the case-insensitive "clear" command. Prefix match, not
// substring-anywhere.
func isReset(act *activity.Activity) bool {
	if act.Type != activity.TypeMessage {
		return false
	}
	text := act.Text
	return len(text) >= len("clear") && strings.EqualFold(text[:len("clear")], "clear")
}

func isMessage(act *activity.Activity) bool {
	return act.Type == activity.TypeMessage && act.Text != ""
}

func isActionSubmit(act *activity.Activity) bool {
	return act.Type == activity.TypeActionSubmit
}

// --- Handlers ---

// handleMembersAdded welcomes new conversation members. When the bot itself
// is added to the designated expert channel, a channel notice is sent
// instead of the user welcome. Additions to other team scopes stay silent.
func (d *Dispatcher) handleMembersAdded(ctx context.Context, act *activity.Activity, _ *history.Conversation) error {
	if act.MembersAdded[0].ID == act.Recipient.ID && d.selectedChannel(act) == d.expertChannel {
		_, err := d.conv.SendActivity(ctx, act.Conversation.ID,
			activity.NewMessage("The FAQ bot has been added to this channel."))
		return err
	}

	if act.ChannelData != nil && act.ChannelData.Team != nil {
		return nil
	}

	_, err := d.conv.SendActivity(ctx, act.Conversation.ID, activity.NewMessage(
		"Welcome to the FAQ bot! I'm here to answer your queries. To clear the conversation history, type clear in the chat."))
	return err
}

func (d *Dispatcher) selectedChannel(act *activity.Activity) string {
	if act.ChannelData == nil || act.ChannelData.Settings == nil || act.ChannelData.Settings.SelectedChannel == nil {
		return ""
	}
	return act.ChannelData.Settings.SelectedChannel.ID
}

// handleReset clears the conversation history unconditionally and confirms.
// The model is never invoked on this path.
func (d *Dispatcher) handleReset(ctx context.Context, act *activity.Activity, conv *history.Conversation) error {
	conv.Clear()
	_, err := d.conv.SendActivity(ctx, act.Conversation.ID, activity.NewMessage(
		"New chat session started: Previous messages won't be used as context for new queries."))
	return err
}

// handleAction decodes the card action payload and routes it to the
// escalation coordinator.
func (d *Dispatcher) handleAction(ctx context.Context, act *activity.Activity, conv *history.Conversation) error {
	action, err := activity.ParseAction(act.Value)
	if err != nil {
		return err
	}

	switch a := action.(type) {
	case activity.RequestExpert:
		return d.coordinator.RequestExpert(ctx, act, conv)
	case activity.ClaimTicket:
		return d.coordinator.ClaimTicket(ctx, act, a)
	case activity.CloseTicket:
		return d.coordinator.CloseTicket(ctx, act, a)
	default:
		return nil
	}
}
