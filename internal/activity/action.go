package activity

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Card action verbs.
const (
	VerbExpert       = "expert"
	VerbChatWithUser = "chat_with_user"
	VerbCloseTicket  = "close_ticket"
)

// Action is the tagged union of card submit payloads. Payloads are decoded
// and validated once at the dispatch boundary instead of handlers poking at
// loose field maps.
type Action interface {
	Verb() string
}

// RequestExpert is submitted when a user clicks "Talk to an Expert".
type RequestExpert struct{}

// Verb implements Action.
func (RequestExpert) Verb() string { return VerbExpert }

// ClaimTicket is submitted when an agent clicks "Chat with User" on a
// ticket card. The card round-trips the requester identity, the rendered
// history lines, and the lifecycle label it was rendered with.
type ClaimTicket struct {
	UserPrincipalName string   `json:"user_principal_name" validate:"required"`
	UserName          string   `json:"user_name" validate:"required"`
	ChatItems         []string `json:"chat_items"`
	Lifecycle         string   `json:"lifecycle"`
}

// Verb implements Action.
func (ClaimTicket) Verb() string { return VerbChatWithUser }

// CloseTicket is submitted when an agent clicks "Close" on a ticket card.
type CloseTicket struct {
	UserName  string   `json:"user_name" validate:"required"`
	ChatItems []string `json:"chat_items"`
	Lifecycle string   `json:"lifecycle"`
}

// Verb implements Action.
func (CloseTicket) Verb() string { return VerbCloseTicket }

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseAction decodes the value payload of an actionSubmit activity into its
// typed variant and validates required fields. Unknown verbs are an error.
func ParseAction(raw json.RawMessage) (Action, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty action payload")
	}

	var envelope struct {
		Verb string `json:"verb"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding action payload: %w", err)
	}

	var action Action
	switch envelope.Verb {
	case VerbExpert:
		action = RequestExpert{}
	case VerbChatWithUser:
		a := ClaimTicket{}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", envelope.Verb, err)
		}
		action = a
	case VerbCloseTicket:
		a := CloseTicket{}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", envelope.Verb, err)
		}
		action = a
	default:
		return nil, fmt.Errorf("unknown action verb %q", envelope.Verb)
	}

	if err := validate.Struct(action); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", envelope.Verb, err)
	}
	return action, nil
}
