// Package connector implements the outbound conversation operations against
// a platform callback service over HTTP. It is the transport used when
// activities arrive through the generic webhook rather than a native
// front-end.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/faqdesk/faqdesk/internal/activity"
)

// Client talks to the platform's conversation REST surface.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a connector client for the given service base URL.
func New(serviceURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(serviceURL, "/"),
		client:  http.DefaultClient,
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// SendActivity posts an activity into a conversation and returns the posted
// activity's identifier.
func (c *Client) SendActivity(ctx context.Context, conversationID string, act *activity.Activity) (string, error) {
	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities",
		c.baseURL, url.PathEscape(conversationID))

	var resp idResponse
	if err := c.do(ctx, http.MethodPost, endpoint, act, &resp); err != nil {
		return "", fmt.Errorf("sending activity: %w", err)
	}
	if resp.ID == "" {
		// Some platforms omit the id on fire-and-forget sends.
		resp.ID = uuid.New().String()
	}
	return resp.ID, nil
}

// UpdateActivity replaces a previously posted activity in place.
func (c *Client) UpdateActivity(ctx context.Context, conversationID, activityID string, act *activity.Activity) error {
	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities/%s",
		c.baseURL, url.PathEscape(conversationID), url.PathEscape(activityID))

	if err := c.do(ctx, http.MethodPut, endpoint, act, nil); err != nil {
		return fmt.Errorf("updating activity: %w", err)
	}
	return nil
}

// CreateConversation creates a new conversation with an initial activity and
// returns the new conversation's identifier.
func (c *Client) CreateConversation(ctx context.Context, params activity.ConversationParams) (string, error) {
	endpoint := c.baseURL + "/v3/conversations"

	var resp idResponse
	if err := c.do(ctx, http.MethodPost, endpoint, params, &resp); err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}
	return resp.ID, nil
}

// Member resolves a conversation participant's directory profile.
func (c *Client) Member(ctx context.Context, conversationID, userID string) (*activity.Member, error) {
	endpoint := fmt.Sprintf("%s/v3/conversations/%s/members/%s",
		c.baseURL, url.PathEscape(conversationID), url.PathEscape(userID))

	member := &activity.Member{}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, member); err != nil {
		return nil, fmt.Errorf("looking up member: %w", err)
	}
	return member, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("connector API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
