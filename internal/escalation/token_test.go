package escalation

import (
	"strings"
	"testing"
)

func TestEncodeCorrelation(t *testing.T) {
	got := EncodeCorrelation("chan123", "chan123", "msg456")
	if got != "chan123;messageid=msg456" {
		t.Fatalf("unexpected encoded id: %q", got)
	}
}

func TestEncodeCorrelationIdempotent(t *testing.T) {
	first := EncodeCorrelation("chan123", "chan123", "msg456")
	second := EncodeCorrelation(first, "chan123", "msg999")

	if second != first {
		t.Fatalf("second encode rewrote the token: %q", second)
	}
	if strings.Count(second, "messageid") != 1 {
		t.Fatalf("expected exactly one token, got %q", second)
	}
}

func TestHasCorrelation(t *testing.T) {
	if HasCorrelation("chan123") {
		t.Fatal("bare id should not carry a token")
	}
	if !HasCorrelation("chan123;messageid=msg456") {
		t.Fatal("encoded id should carry a token")
	}
}

func TestSplitConversationID(t *testing.T) {
	tests := []struct {
		id          string
		wantChannel string
		wantMessage string
	}{
		{"chan123", "chan123", ""},
		{"chan123;messageid=msg456", "chan123", "msg456"},
		{"19:abc@thread.tacv2;messageid=17123", "19:abc@thread.tacv2", "17123"},
	}

	for _, tt := range tests {
		channel, message := SplitConversationID(tt.id)
		if channel != tt.wantChannel || message != tt.wantMessage {
			t.Fatalf("SplitConversationID(%q) = (%q, %q), want (%q, %q)",
				tt.id, channel, message, tt.wantChannel, tt.wantMessage)
		}
	}
}
