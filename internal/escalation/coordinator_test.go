package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/card"
	"github.com/faqdesk/faqdesk/internal/history"
)

type sent struct {
	conversationID string
	act            *activity.Activity
}

type updated struct {
	conversationID string
	activityID     string
	act            *activity.Activity
}

type fakeConversations struct {
	sent       []sent
	updated    []updated
	created    []activity.ConversationParams
	createErr  error
	nextSendID string
}

func (f *fakeConversations) SendActivity(ctx context.Context, conversationID string, act *activity.Activity) (string, error) {
	f.sent = append(f.sent, sent{conversationID, act})
	return f.nextSendID, nil
}

func (f *fakeConversations) UpdateActivity(ctx context.Context, conversationID, activityID string, act *activity.Activity) error {
	f.updated = append(f.updated, updated{conversationID, activityID, act})
	return nil
}

func (f *fakeConversations) CreateConversation(ctx context.Context, params activity.ConversationParams) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, params)
	return "expert-conv", nil
}

type fakeDirectory struct {
	member *activity.Member
	err    error
}

func (f *fakeDirectory) Member(ctx context.Context, conversationID, userID string) (*activity.Member, error) {
	return f.member, f.err
}

func cardOf(t *testing.T, act *activity.Activity) card.Card {
	t.Helper()
	if len(act.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(act.Attachments))
	}
	c, ok := act.Attachments[0].Content.(card.Card)
	if !ok {
		t.Fatalf("unexpected attachment content %T", act.Attachments[0].Content)
	}
	return c
}

func statusOf(t *testing.T, c card.Card) string {
	t.Helper()
	for _, el := range c.Body {
		if strings.HasPrefix(el.Text, "Status: ") {
			return strings.TrimPrefix(el.Text, "Status: ")
		}
	}
	t.Fatal("card has no status line")
	return ""
}

func TestRequestExpertPostsTicketAndAcknowledges(t *testing.T) {
	user := &fakeConversations{}
	expert := &fakeConversations{}
	dir := &fakeDirectory{member: &activity.Member{PrincipalName: "megan@contoso.com", DisplayName: "Megan"}}
	c := New(user, expert, dir, "expert-channel", "bot-1")

	conv := &history.Conversation{}
	for i := 0; i < 12; i++ {
		conv.Append(history.RoleUser, fmt.Sprintf("question %d", i))
	}

	act := &activity.Activity{
		Type:         activity.TypeActionSubmit,
		Conversation: activity.ConversationAccount{ID: "user-conv"},
		From:         activity.ChannelAccount{ID: "u1", Name: "Megan"},
	}

	if err := c.RequestExpert(context.Background(), act, conv); err != nil {
		t.Fatalf("request expert: %v", err)
	}

	if len(expert.created) != 1 {
		t.Fatalf("expected one created conversation, got %d", len(expert.created))
	}
	params := expert.created[0]
	if !params.IsGroup {
		t.Fatal("expected a group conversation")
	}
	if params.ChannelData.Channel.ID != "expert-channel" {
		t.Fatalf("unexpected target channel: %s", params.ChannelData.Channel.ID)
	}

	ticket := cardOf(t, params.Activity)
	if got := statusOf(t, ticket); got != LifecycleNew {
		t.Fatalf("expected lifecycle %q, got %q", LifecycleNew, got)
	}

	// The card round-trips exactly the last 10 history lines.
	var items []string
	for _, el := range ticket.Body {
		if el.Type == "ActionSet" {
			items = el.Actions[0].Data["chat_items"].([]string)
		}
	}
	if len(items) != 10 {
		t.Fatalf("expected 10 history lines, got %d", len(items))
	}
	if items[0] != "User: question 2" || items[9] != "User: question 11" {
		t.Fatalf("unexpected history window: %v", items)
	}

	if len(user.sent) != 1 || user.sent[0].conversationID != "user-conv" {
		t.Fatalf("expected one acknowledgement to the requester, got %+v", user.sent)
	}
	if !strings.Contains(user.sent[0].act.Text, "connecting you to an expert") {
		t.Fatalf("unexpected acknowledgement: %q", user.sent[0].act.Text)
	}
}

func TestRequestExpertDirectoryFailureAborts(t *testing.T) {
	user := &fakeConversations{}
	expert := &fakeConversations{}
	dir := &fakeDirectory{err: errors.New("user not found")}
	c := New(user, expert, dir, "expert-channel", "bot-1")

	act := &activity.Activity{
		Conversation: activity.ConversationAccount{ID: "user-conv"},
		From:         activity.ChannelAccount{ID: "u1"},
	}

	err := c.RequestExpert(context.Background(), act, &history.Conversation{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(expert.created) != 0 {
		t.Fatal("no conversation should be created after a directory failure")
	}
	if len(user.sent) != 0 {
		t.Fatal("no acknowledgement should be sent after a directory failure")
	}
}

func TestRequestExpertCreateFailureSkipsAcknowledgement(t *testing.T) {
	user := &fakeConversations{}
	expert := &fakeConversations{createErr: errors.New("channel unavailable")}
	dir := &fakeDirectory{member: &activity.Member{PrincipalName: "a@b.c", DisplayName: "A"}}
	c := New(user, expert, dir, "expert-channel", "bot-1")

	act := &activity.Activity{
		Conversation: activity.ConversationAccount{ID: "user-conv"},
		From:         activity.ChannelAccount{ID: "u1"},
	}

	if err := c.RequestExpert(context.Background(), act, &history.Conversation{}); err == nil {
		t.Fatal("expected error")
	}
	if len(user.sent) != 0 {
		t.Fatal("requester must not be acknowledged when creation fails")
	}
}

func claimActivity() *activity.Activity {
	return &activity.Activity{
		Type:         activity.TypeActionSubmit,
		Conversation: activity.ConversationAccount{ID: "chan123"},
		From:         activity.ChannelAccount{ID: "agent1", Name: "Alex"},
		ReplyToID:    "msg456",
		ChannelData:  &activity.ChannelData{Channel: &activity.ChannelInfo{ID: "chan123"}},
	}
}

func TestClaimTicketUpdatesCardAndEncodesToken(t *testing.T) {
	expert := &fakeConversations{}
	c := New(expert, expert, &fakeDirectory{}, "expert-channel", "bot-1")

	act := claimActivity()
	payload := activity.ClaimTicket{
		UserPrincipalName: "megan@contoso.com",
		UserName:          "Megan",
		ChatItems:         []string{"User: hi"},
		Lifecycle:         LifecycleNew,
	}

	if err := c.ClaimTicket(context.Background(), act, payload); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if act.Conversation.ID != "chan123;messageid=msg456" {
		t.Fatalf("unexpected conversation id: %q", act.Conversation.ID)
	}

	if len(expert.updated) != 1 {
		t.Fatalf("expected one in-place update, got %d", len(expert.updated))
	}
	if expert.updated[0].activityID != "msg456" {
		t.Fatalf("update addressed wrong activity: %s", expert.updated[0].activityID)
	}
	if got := statusOf(t, cardOf(t, expert.updated[0].act)); got != LifecycleInProgress {
		t.Fatalf("expected lifecycle %q, got %q", LifecycleInProgress, got)
	}

	if len(expert.sent) != 1 || !strings.Contains(expert.sent[0].act.Text, "Alex is resolving the request") {
		t.Fatalf("unexpected status line: %+v", expert.sent)
	}
}

func TestClaimThenCloseEncodesExactlyOneToken(t *testing.T) {
	expert := &fakeConversations{}
	c := New(expert, expert, &fakeDirectory{}, "expert-channel", "bot-1")

	act := claimActivity()
	claim := activity.ClaimTicket{UserPrincipalName: "m@c.com", UserName: "Megan", Lifecycle: LifecycleNew}
	if err := c.ClaimTicket(context.Background(), act, claim); err != nil {
		t.Fatalf("claim: %v", err)
	}

	closeAct := claimActivity()
	closeAct.Conversation.ID = act.Conversation.ID // same ticket, token already applied
	closePayload := activity.CloseTicket{UserName: "Megan", Lifecycle: LifecycleInProgress}
	if err := c.CloseTicket(context.Background(), closeAct, closePayload); err != nil {
		t.Fatalf("close: %v", err)
	}

	if n := strings.Count(closeAct.Conversation.ID, "messageid"); n != 1 {
		t.Fatalf("expected exactly one correlation token, got %d in %q", n, closeAct.Conversation.ID)
	}
}

func TestClosedTicketActionsAreNoOps(t *testing.T) {
	expert := &fakeConversations{}
	c := New(expert, expert, &fakeDirectory{}, "expert-channel", "bot-1")

	act := claimActivity()
	claim := activity.ClaimTicket{UserPrincipalName: "m@c.com", UserName: "Megan", Lifecycle: LifecycleClosed}
	if err := c.ClaimTicket(context.Background(), act, claim); err != nil {
		t.Fatalf("claim on closed: %v", err)
	}
	closePayload := activity.CloseTicket{UserName: "Megan", Lifecycle: LifecycleClosed}
	if err := c.CloseTicket(context.Background(), claimActivity(), closePayload); err != nil {
		t.Fatalf("close on closed: %v", err)
	}

	if len(expert.updated) != 0 || len(expert.sent) != 0 {
		t.Fatalf("closed ticket must not be touched: %d updates, %d sends",
			len(expert.updated), len(expert.sent))
	}
}

func TestLifecycleNeverRegresses(t *testing.T) {
	rank := map[string]int{LifecycleNew: 0, LifecycleInProgress: 1, LifecycleClosed: 2}

	expert := &fakeConversations{}
	c := New(expert, expert, &fakeDirectory{}, "expert-channel", "bot-1")

	labels := []string{LifecycleNew}

	act := claimActivity()
	if err := c.ClaimTicket(context.Background(), act, activity.ClaimTicket{
		UserPrincipalName: "m@c.com", UserName: "Megan", Lifecycle: LifecycleNew,
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	labels = append(labels, statusOf(t, cardOf(t, expert.updated[len(expert.updated)-1].act)))

	if err := c.ClaimTicket(context.Background(), claimActivity(), activity.ClaimTicket{
		UserPrincipalName: "m@c.com", UserName: "Megan", Lifecycle: LifecycleInProgress,
	}); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	labels = append(labels, statusOf(t, cardOf(t, expert.updated[len(expert.updated)-1].act)))

	if err := c.CloseTicket(context.Background(), claimActivity(), activity.CloseTicket{
		UserName: "Megan", Lifecycle: LifecycleInProgress,
	}); err != nil {
		t.Fatalf("close: %v", err)
	}
	labels = append(labels, statusOf(t, cardOf(t, expert.updated[len(expert.updated)-1].act)))

	for i := 1; i < len(labels); i++ {
		if rank[labels[i]] < rank[labels[i-1]] {
			t.Fatalf("lifecycle regressed: %v", labels)
		}
	}
}
