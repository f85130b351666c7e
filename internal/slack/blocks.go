package slack

import (
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/card"
)

// msgOptions converts an outbound activity into Slack message options:
// plain text as-is, adaptive-card attachments as Block Kit blocks.
func msgOptions(act *activity.Activity) ([]slack.MsgOption, error) {
	if len(act.Attachments) == 0 {
		return []slack.MsgOption{slack.MsgOptionText(act.Text, false)}, nil
	}

	blocks, err := blocksFromAttachment(act.Attachments[0])
	if err != nil {
		return nil, err
	}
	return []slack.MsgOption{slack.MsgOptionBlocks(blocks...)}, nil
}

// blocksFromAttachment renders an adaptive card as Block Kit: TextBlocks
// become sections, ActionSets become button rows. Button values carry the
// card's submit data as JSON so interactions round-trip the same payload an
// adaptive card would.
func blocksFromAttachment(att activity.Attachment) ([]slack.Block, error) {
	c, ok := att.Content.(card.Card)
	if !ok {
		return nil, fmt.Errorf("unsupported attachment content %T", att.Content)
	}

	var blocks []slack.Block
	for _, el := range c.Body {
		switch el.Type {
		case "TextBlock":
			text := el.Text
			if el.Weight == "Bolder" {
				text = "*" + text + "*"
			}
			obj := slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
			blocks = append(blocks, slack.NewSectionBlock(obj, nil, nil))

		case "ActionSet":
			var buttons []slack.BlockElement
			for _, a := range el.Actions {
				value, err := json.Marshal(a.Data)
				if err != nil {
					return nil, fmt.Errorf("encoding action data: %w", err)
				}
				verb, _ := a.Data["verb"].(string)
				title := slack.NewTextBlockObject(slack.PlainTextType, a.Title, false, false)
				buttons = append(buttons, slack.NewButtonBlockElement(verb, string(value), title))
			}
			blocks = append(blocks, slack.NewActionBlock("", buttons...))
		}
	}
	return blocks, nil
}
