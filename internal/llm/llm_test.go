package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/faqdesk/faqdesk/internal/history"
)

type fakeClient struct {
	response string
	err      error

	gotSystem   string
	gotMessages []Message
}

func (f *fakeClient) ChatComplete(ctx context.Context, system string, messages []Message) (string, error) {
	f.gotSystem = system
	f.gotMessages = messages
	return f.response, f.err
}

func TestAssistantSuccess(t *testing.T) {
	client := &fakeClient{response: "9-5"}
	a := NewAssistant(client, "Office hours: 9-5")

	result := a.Complete(context.Background(), nil, "What are the office hours?")
	if result.Status != StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Error)
	}
	if result.Message == nil || result.Message.Content != "9-5" {
		t.Fatalf("unexpected message: %+v", result.Message)
	}
	if !strings.Contains(client.gotSystem, "Office hours: 9-5") {
		t.Fatal("knowledge not embedded in system prompt")
	}
}

func TestAssistantReportsProviderError(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	a := NewAssistant(client, "")

	result := a.Complete(context.Background(), nil, "hello")
	if result.Status != StatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "rate limited") {
		t.Fatalf("upstream detail lost: %q", result.Error)
	}
	if result.Message != nil {
		t.Fatal("error result must not carry a message")
	}
}

func TestAssistantReportsEmptyCompletion(t *testing.T) {
	a := NewAssistant(&fakeClient{response: ""}, "")

	result := a.Complete(context.Background(), nil, "hello")
	if result.Status != StatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
}

func TestAssistantReplaysRecentHistory(t *testing.T) {
	client := &fakeClient{response: "ok"}
	a := NewAssistant(client, "")

	var turns []history.Turn
	for i := 0; i < 15; i++ {
		turns = append(turns, history.Turn{Role: history.RoleUser, Content: fmt.Sprintf("q%d", i)})
	}

	a.Complete(context.Background(), turns, "latest")

	// Last 10 turns plus the new user message.
	if len(client.gotMessages) != history.DisplayLimit+1 {
		t.Fatalf("expected %d messages, got %d", history.DisplayLimit+1, len(client.gotMessages))
	}
	if client.gotMessages[0].Content != "q5" {
		t.Fatalf("unexpected window start: %q", client.gotMessages[0].Content)
	}
	last := client.gotMessages[len(client.gotMessages)-1]
	if last.Role != history.RoleUser || last.Content != "latest" {
		t.Fatalf("unexpected final message: %+v", last)
	}
}

func TestLoadKnowledge(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hours.txt"), []byte("Open 9-5"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wifi.txt"), []byte("SSID: corp"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadKnowledge(dir)
	if err != nil {
		t.Fatalf("load knowledge: %v", err)
	}
	if !strings.Contains(got, "Open 9-5") || !strings.Contains(got, "SSID: corp") {
		t.Fatalf("knowledge missing file content: %q", got)
	}
}

func TestLoadKnowledgeMissingDir(t *testing.T) {
	got, err := LoadKnowledge(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty knowledge, got %q", got)
	}
}
