// Package activity defines the transport-neutral event schema exchanged with
// the messaging platform. Front-ends (Slack, Telegram, the HTTP connector)
// translate their native events into Activities and render outbound
// Activities back into their native formats.
package activity

import "encoding/json"

// Activity types.
const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
	TypeActionSubmit       = "actionSubmit"
)

// ChannelAccount identifies a user or bot on the platform.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
//
// After a ticket is claimed or closed, the coordinator rewrites ID to carry
// the correlation token ("{channelID};messageid={msgID}") so later updates
// can address the specific posted card.
type ConversationAccount struct {
	ID      string `json:"id"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// ChannelInfo identifies a channel on the platform.
type ChannelInfo struct {
	ID string `json:"id"`
}

// TeamInfo is present on activities originating from a team scope rather
// than a personal conversation.
type TeamInfo struct {
	ID string `json:"id"`
}

// ChannelSettings carries the channel selected when the bot was installed.
type ChannelSettings struct {
	SelectedChannel *ChannelInfo `json:"selectedChannel,omitempty"`
}

// ChannelData is platform-specific routing metadata attached to an activity.
type ChannelData struct {
	Channel  *ChannelInfo     `json:"channel,omitempty"`
	Team     *TeamInfo        `json:"team,omitempty"`
	Settings *ChannelSettings `json:"settings,omitempty"`
}

// Attachment is a displayable card attached to a message activity.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content"`
}

// Activity is a single inbound or outbound event.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Text         string              `json:"text,omitempty"`
	Value        json.RawMessage     `json:"value,omitempty"`
	Conversation ConversationAccount `json:"conversation"`
	From         ChannelAccount      `json:"from,omitempty"`
	Recipient    ChannelAccount      `json:"recipient,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
	MembersAdded []ChannelAccount    `json:"membersAdded,omitempty"`
	ChannelData  *ChannelData        `json:"channelData,omitempty"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
}

// NewMessage builds a plain text message activity.
func NewMessage(text string) *Activity {
	return &Activity{Type: TypeMessage, Text: text}
}

// NewCardMessage builds a message activity carrying a single attachment.
func NewCardMessage(att Attachment) *Activity {
	return &Activity{Type: TypeMessage, Attachments: []Attachment{att}}
}

// ConversationParams describe a conversation to be created on the platform.
type ConversationParams struct {
	ChannelData *ChannelData `json:"channelData,omitempty"`
	IsGroup     bool         `json:"isGroup"`
	Bot         *ChannelAccount `json:"bot,omitempty"`
	Activity    *Activity    `json:"activity"`
}

// Member is a resolved directory entry for a conversation participant.
type Member struct {
	PrincipalName string `json:"userPrincipalName"`
	DisplayName   string `json:"name"`
}
