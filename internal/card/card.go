// Package card renders adaptive-card attachments: the AI answer card, the
// expert ticket card, and the closed-ticket card.
//
// Cards are built as typed adaptive-card JSON so any front-end can either
// forward them verbatim (connector) or translate them into its native
// format (Slack Block Kit, Telegram inline keyboards).
package card

import "github.com/faqdesk/faqdesk/internal/activity"

// ContentType is the attachment content type for adaptive cards.
const ContentType = "application/vnd.microsoft.card.adaptive"

const (
	schemaURL   = "http://adaptivecards.io/schemas/adaptive-card.json"
	cardVersion = "1.5"
)

// Card is the top-level adaptive card document.
type Card struct {
	Schema  string    `json:"$schema"`
	Version string    `json:"version"`
	Type    string    `json:"type"`
	Body    []Element `json:"body"`
}

// Element is a card body element: a TextBlock or an ActionSet.
type Element struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Wrap    bool           `json:"wrap,omitempty"`
	Weight  string         `json:"weight,omitempty"`
	Size    string         `json:"size,omitempty"`
	Spacing string         `json:"spacing,omitempty"`
	Actions []SubmitAction `json:"actions,omitempty"`
}

// SubmitAction is a clickable card action. Data round-trips back to the bot
// as the actionSubmit value payload.
type SubmitAction struct {
	Type  string         `json:"type"`
	Title string         `json:"title"`
	Data  map[string]any `json:"data"`
}

func textBlock(text string) Element {
	return Element{Type: "TextBlock", Text: text, Wrap: true, Spacing: "small"}
}

func heading(text string) Element {
	return Element{Type: "TextBlock", Text: text, Wrap: true, Weight: "Bolder", Size: "Medium"}
}

func attachment(body []Element) activity.Attachment {
	return activity.Attachment{
		ContentType: ContentType,
		Content: Card{
			Schema:  schemaURL,
			Version: cardVersion,
			Type:    "AdaptiveCard",
			Body:    body,
		},
	}
}

// RenderAnswer builds the answer card for a model response. It carries one
// action, "Talk to an Expert", which submits the expert verb.
func RenderAnswer(content string) activity.Attachment {
	return attachment([]Element{
		{Type: "TextBlock", Text: content, Wrap: true, Weight: "Bolder", Spacing: "small"},
		{
			Type:    "ActionSet",
			Spacing: "small",
			Actions: []SubmitAction{{
				Type:  "Action.Submit",
				Title: "Talk to an Expert",
				Data:  map[string]any{"verb": activity.VerbExpert},
			}},
		},
	})
}

// RenderTicket builds the expert ticket card posted into the expert channel.
// The lifecycle label ("New" / "In progress") is rendered on the card and
// embedded in both action payloads so a later submit carries the state the
// card was rendered with.
func RenderTicket(principalName, displayName string, historyLines []string, lifecycle string) activity.Attachment {
	body := []Element{
		heading("Expert request from " + displayName),
		textBlock("User: " + principalName),
		textBlock("Status: " + lifecycle),
		heading("Chat history"),
	}
	for _, line := range historyLines {
		body = append(body, textBlock(line))
	}

	data := func(verb string) map[string]any {
		return map[string]any{
			"verb":                verb,
			"user_principal_name": principalName,
			"user_name":           displayName,
			"chat_items":          historyLines,
			"lifecycle":           lifecycle,
		}
	}
	body = append(body, Element{
		Type:    "ActionSet",
		Spacing: "small",
		Actions: []SubmitAction{
			{Type: "Action.Submit", Title: "Chat with User", Data: data(activity.VerbChatWithUser)},
			{Type: "Action.Submit", Title: "Close", Data: data(activity.VerbCloseTicket)},
		},
	})

	return attachment(body)
}

// RenderClosed builds the terminal card shown once a ticket is closed. It
// has no actions; the lifecycle ends here.
func RenderClosed(displayName string, historyLines []string) activity.Attachment {
	body := []Element{
		heading("Request from " + displayName + " closed"),
		textBlock("Status: Closed"),
		heading("Chat history"),
	}
	for _, line := range historyLines {
		body = append(body, textBlock(line))
	}
	return attachment(body)
}
