// Package telegram provides a Telegram front-end for FAQDesk end users.
//
// Uses long polling -- no public URL or webhook needed. Messages become
// chat turns and inline keyboard buttons become card action submits. Expert
// tickets are never hosted on Telegram; escalations raised here are posted
// into the expert channel through the expert transport.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/card"
	"github.com/faqdesk/faqdesk/internal/escalation"
)

// Dispatcher is the interface used to hand translated activities to the
// turn dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, act *activity.Activity)
}

// Bot is the Telegram front-end for FAQDesk.
type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher Dispatcher
}

// NewBot creates a new Telegram bot.
func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating Telegram bot: %w", err)
	}

	log.Printf("Telegram bot authorized as @%s", api.Self.UserName)

	return &Bot{api: api}, nil
}

// Attach wires the turn dispatcher.
func (b *Bot) Attach(d Dispatcher) {
	b.dispatcher = d
}

// Run starts the long-polling loop. Blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	log.Println("Telegram bot listening for messages...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.Message != nil:
				go b.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				go b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// handleMessage translates an incoming message. /start behaves like being
// added to the conversation: it produces a membership update so the user
// gets the welcome message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	conversationID := strconv.FormatInt(msg.Chat.ID, 10)
	from := activity.ChannelAccount{
		ID:   strconv.FormatInt(msg.From.ID, 10),
		Name: displayName(msg.From),
	}

	text := strings.TrimSpace(msg.Text)
	if text == "/start" || text == "/help" {
		act := &activity.Activity{
			Type:         activity.TypeConversationUpdate,
			Conversation: activity.ConversationAccount{ID: conversationID},
			MembersAdded: []activity.ChannelAccount{from},
			From:         from,
		}
		b.dispatcher.Dispatch(ctx, act)
		return
	}
	if text == "" {
		return
	}

	act := &activity.Activity{
		Type:         activity.TypeMessage,
		Text:         text,
		Conversation: activity.ConversationAccount{ID: conversationID},
		From:         from,
	}
	b.dispatcher.Dispatch(ctx, act)
}

// handleCallback translates an inline keyboard press into an actionSubmit
// activity. Telegram callback data is limited to 64 bytes, so buttons carry
// only the verb envelope; that is enough for the user-side expert request,
// the only action hosted on this front-end.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Acknowledge the press so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("Telegram: answering callback: %v", err)
	}

	if cq.Message == nil || cq.Data == "" {
		return
	}

	act := &activity.Activity{
		Type:         activity.TypeActionSubmit,
		Value:        []byte(cq.Data),
		Conversation: activity.ConversationAccount{ID: strconv.FormatInt(cq.Message.Chat.ID, 10)},
		From: activity.ChannelAccount{
			ID:   strconv.FormatInt(cq.From.ID, 10),
			Name: displayName(cq.From),
		},
		ReplyToID: strconv.Itoa(cq.Message.MessageID),
	}
	b.dispatcher.Dispatch(ctx, act)
}

// --- Conversations implementation ---

// SendActivity sends a message or rendered card to a chat and returns the
// message identifier.
func (b *Bot) SendActivity(ctx context.Context, conversationID string, act *activity.Activity) (string, error) {
	chatID, err := chatID(conversationID)
	if err != nil {
		return "", err
	}

	text, keyboard, err := renderActivity(act)
	if err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return "", fmt.Errorf("sending to chat %d: %w", chatID, err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// UpdateActivity edits a previously sent message in place.
func (b *Bot) UpdateActivity(ctx context.Context, conversationID, activityID string, act *activity.Activity) error {
	chatID, err := chatID(conversationID)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(activityID)
	if err != nil {
		return fmt.Errorf("invalid activity id %q: %w", activityID, err)
	}

	text, keyboard, err := renderActivity(act)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}

	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("editing message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// CreateConversation is not supported on Telegram. Tickets live in the
// expert channel; the coordinator uses the expert transport to create them.
func (b *Bot) CreateConversation(ctx context.Context, params activity.ConversationParams) (string, error) {
	return "", fmt.Errorf("telegram front-end cannot host expert conversations")
}

// --- Directory implementation ---

// Member resolves a chat participant. The Telegram username is the closest
// thing to a principal name the platform offers.
func (b *Bot) Member(ctx context.Context, conversationID, userID string) (*activity.Member, error) {
	cid, err := chatID(conversationID)
	if err != nil {
		return nil, err
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: cid, UserID: uid},
	})
	if err != nil {
		return nil, fmt.Errorf("getting chat member %s: %w", userID, err)
	}

	principal := member.User.UserName
	if principal == "" {
		principal = userID
	}
	return &activity.Member{
		PrincipalName: "@" + principal,
		DisplayName:   displayName(member.User),
	}, nil
}

// --- Rendering helpers ---

// renderActivity flattens an outbound activity into message text plus an
// optional inline keyboard built from the card's actions.
func renderActivity(act *activity.Activity) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	if len(act.Attachments) == 0 {
		return act.Text, nil, nil
	}

	c, ok := act.Attachments[0].Content.(card.Card)
	if !ok {
		return "", nil, fmt.Errorf("unsupported attachment content %T", act.Attachments[0].Content)
	}

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, el := range c.Body {
		switch el.Type {
		case "TextBlock":
			sb.WriteString(el.Text)
			sb.WriteString("\n")
		case "ActionSet":
			var row []tgbotapi.InlineKeyboardButton
			for _, a := range el.Actions {
				verb, _ := a.Data["verb"].(string)
				data := fmt.Sprintf(`{"verb":%q}`, verb)
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Title, data))
			}
			rows = append(rows, row)
		}
	}

	var keyboard *tgbotapi.InlineKeyboardMarkup
	if len(rows) > 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
		keyboard = &kb
	}
	return strings.TrimRight(sb.String(), "\n"), keyboard, nil
}

func chatID(conversationID string) (int64, error) {
	bare, _ := escalation.SplitConversationID(conversationID)
	id, err := strconv.ParseInt(bare, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid conversation id %q: %w", conversationID, err)
	}
	return id, nil
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
