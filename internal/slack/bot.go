// Package slack provides the Slack front-end for FAQDesk using Socket Mode.
//
// Socket Mode connects to Slack via WebSocket -- no public URL needed.
// Direct messages become chat turns, the expert channel hosts ticket cards,
// and Block Kit button clicks become card action submits.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/escalation"
)

// Dispatcher is the interface used to hand translated activities to the
// turn dispatcher. The dispatch package implements this so the bot doesn't
// depend on the full dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, act *activity.Activity)
}

// Bot is the Slack Socket Mode front-end for FAQDesk.
type Bot struct {
	api           *slack.Client
	socketClient  *socketmode.Client
	dispatcher    Dispatcher
	expertChannel string
	botUserID     string
}

// NewBot creates a new Slack Socket Mode bot.
func NewBot(botToken, appToken, expertChannel string) *Bot {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socketClient := socketmode.New(
		api,
		socketmode.OptionLog(log.New(log.Writer(), "slack-socketmode: ", log.LstdFlags)),
	)

	return &Bot{
		api:           api,
		socketClient:  socketClient,
		expertChannel: expertChannel,
	}
}

// Attach wires the turn dispatcher. Called once during startup, after the
// dispatcher has been constructed with this bot as its transport.
func (b *Bot) Attach(d Dispatcher) {
	b.dispatcher = d
}

// Run connects to Slack via Socket Mode and processes events.
// It blocks until the context is canceled or a fatal error occurs.
func (b *Bot) Run(ctx context.Context) error {
	auth, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	b.botUserID = auth.UserID

	go b.eventLoop(ctx)
	log.Println("Slack bot connecting via Socket Mode...")
	return b.socketClient.RunContext(ctx)
}

// eventLoop reads events from the Socket Mode client and dispatches them.
func (b *Bot) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketClient.Events:
			if !ok {
				return
			}
			b.handleEvent(ctx, evt)
		}
	}
}

// handleEvent translates a single Socket Mode event into an activity.
func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Println("Slack: connecting...")
	case socketmode.EventTypeConnected:
		log.Println("Slack: connected")
	case socketmode.EventTypeConnectionError:
		log.Println("Slack: connection error, will retry...")
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		// Acknowledge immediately (Slack requires ack within 3 seconds).
		b.socketClient.Ack(*evt.Request)

		if eventsAPIEvent.Type == slackevents.CallbackEvent {
			b.handleCallbackEvent(ctx, eventsAPIEvent.InnerEvent)
		}
	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		b.socketClient.Ack(*evt.Request)
		b.handleInteraction(ctx, callback)
	}
}

// handleCallbackEvent routes inner Events API events.
func (b *Bot) handleCallbackEvent(ctx context.Context, innerEvent slackevents.EventsAPIInnerEvent) {
	switch ev := innerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		b.handleMessage(ctx, ev)
	case *slackevents.MemberJoinedChannelEvent:
		b.handleMemberJoined(ctx, ev)
	}
}

// handleMessage translates a direct message into a message activity.
func (b *Bot) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore the bot's own messages and anything outside direct messages.
	if ev.BotID != "" || ev.User == b.botUserID || ev.ChannelType != "im" {
		return
	}

	act := &activity.Activity{
		Type:         activity.TypeMessage,
		Text:         ev.Text,
		Conversation: activity.ConversationAccount{ID: ev.Channel},
		From:         activity.ChannelAccount{ID: ev.User},
		Recipient:    activity.ChannelAccount{ID: b.botUserID},
	}
	go b.dispatcher.Dispatch(ctx, act)
}

// handleMemberJoined translates channel joins into conversationUpdate
// activities. Joins land with the channel as both the conversation and the
// selected channel so the dispatcher can recognize the expert channel.
func (b *Bot) handleMemberJoined(ctx context.Context, ev *slackevents.MemberJoinedChannelEvent) {
	act := &activity.Activity{
		Type:         activity.TypeConversationUpdate,
		Conversation: activity.ConversationAccount{ID: ev.Channel},
		MembersAdded: []activity.ChannelAccount{{ID: ev.User}},
		Recipient:    activity.ChannelAccount{ID: b.botUserID},
		ChannelData: &activity.ChannelData{
			Team:     &activity.TeamInfo{ID: ev.Team},
			Settings: &activity.ChannelSettings{SelectedChannel: &activity.ChannelInfo{ID: ev.Channel}},
		},
	}
	go b.dispatcher.Dispatch(ctx, act)
}

// handleInteraction translates Block Kit button clicks into actionSubmit
// activities. The button value carries the card's submit data as JSON; the
// container message timestamp becomes the reply target for in-place card
// updates.
func (b *Bot) handleInteraction(ctx context.Context, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}

	for _, action := range callback.ActionCallback.BlockActions {
		value := json.RawMessage(action.Value)
		if len(value) == 0 {
			continue
		}

		name := callback.User.Profile.RealName
		if name == "" {
			name = callback.User.Name
		}

		act := &activity.Activity{
			Type:         activity.TypeActionSubmit,
			Value:        value,
			Conversation: activity.ConversationAccount{ID: callback.Channel.ID},
			From:         activity.ChannelAccount{ID: callback.User.ID, Name: name},
			Recipient:    activity.ChannelAccount{ID: b.botUserID},
			ReplyToID:    callback.Message.Timestamp,
			ChannelData:  &activity.ChannelData{Channel: &activity.ChannelInfo{ID: callback.Channel.ID}},
		}
		go b.dispatcher.Dispatch(ctx, act)
	}
}

// --- Conversations implementation ---

// SendActivity posts an activity into a Slack channel. Correlation-encoded
// conversation identifiers are split back to the bare channel first.
func (b *Bot) SendActivity(ctx context.Context, conversationID string, act *activity.Activity) (string, error) {
	channelID, _ := escalation.SplitConversationID(conversationID)

	opts, err := msgOptions(act)
	if err != nil {
		return "", err
	}

	_, ts, err := b.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("posting to %s: %w", channelID, err)
	}
	return ts, nil
}

// UpdateActivity replaces a posted message in place.
func (b *Bot) UpdateActivity(ctx context.Context, conversationID, activityID string, act *activity.Activity) error {
	channelID, _ := escalation.SplitConversationID(conversationID)

	opts, err := msgOptions(act)
	if err != nil {
		return err
	}

	if _, _, _, err := b.api.UpdateMessageContext(ctx, channelID, activityID, opts...); err != nil {
		return fmt.Errorf("updating message %s in %s: %w", activityID, channelID, err)
	}
	return nil
}

// CreateConversation posts the initial activity into the target channel and
// returns the channel as the new conversation. Slack has no separate
// group-conversation handle; the posted card's thread is the conversation.
func (b *Bot) CreateConversation(ctx context.Context, params activity.ConversationParams) (string, error) {
	if params.ChannelData == nil || params.ChannelData.Channel == nil {
		return "", fmt.Errorf("conversation params missing target channel")
	}
	channelID := params.ChannelData.Channel.ID

	if _, err := b.SendActivity(ctx, channelID, params.Activity); err != nil {
		return "", err
	}
	return channelID, nil
}

// --- Directory implementation ---

// Member resolves a Slack user to a directory profile. The profile email is
// the principal name.
func (b *Bot) Member(ctx context.Context, conversationID, userID string) (*activity.Member, error) {
	user, err := b.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user info for %s: %w", userID, err)
	}

	principal := user.Profile.Email
	if principal == "" {
		principal = user.Name
	}
	display := user.RealName
	if display == "" {
		display = user.Name
	}
	return &activity.Member{PrincipalName: principal, DisplayName: display}, nil
}
