package activity

import (
	"encoding/json"
	"testing"
)

func TestParseActionRequestExpert(t *testing.T) {
	action, err := ParseAction(json.RawMessage(`{"verb":"expert"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := action.(RequestExpert); !ok {
		t.Fatalf("unexpected action type %T", action)
	}
}

func TestParseActionClaimTicket(t *testing.T) {
	raw := json.RawMessage(`{
		"verb": "chat_with_user",
		"user_principal_name": "megan@contoso.com",
		"user_name": "Megan",
		"chat_items": ["User: hi"],
		"lifecycle": "New"
	}`)

	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	claim, ok := action.(ClaimTicket)
	if !ok {
		t.Fatalf("unexpected action type %T", action)
	}
	if claim.UserPrincipalName != "megan@contoso.com" || claim.UserName != "Megan" {
		t.Fatalf("unexpected payload: %+v", claim)
	}
	if len(claim.ChatItems) != 1 || claim.Lifecycle != "New" {
		t.Fatalf("unexpected payload: %+v", claim)
	}
}

func TestParseActionCloseTicket(t *testing.T) {
	raw := json.RawMessage(`{"verb":"close_ticket","user_name":"Megan","lifecycle":"In progress"}`)

	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := action.(CloseTicket); !ok {
		t.Fatalf("unexpected action type %T", action)
	}
}

func TestParseActionRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"bad json", "{"},
		{"unknown verb", `{"verb":"reopen_ticket"}`},
		{"claim missing fields", `{"verb":"chat_with_user"}`},
		{"close missing fields", `{"verb":"close_ticket"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAction(json.RawMessage(tt.raw)); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}
