// Package notify delivers best-effort push messages through the LINE
// Messaging API. Delivery failures are reported to callers but callers are
// expected to log and continue; push is never load-bearing.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultPushEndpoint = "https://api.line.me/v2/bot/message/push"

var ErrPushFailed = errors.New("line push failed")

// Pusher sends messages to one LINE user.
type Pusher interface {
	Push(ctx context.Context, lineUserID string, messages []Message) error
}

// Message is one LINE message: plain text or a flex bubble.
type Message struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	AltText  string         `json:"altText,omitempty"`
	Contents map[string]any `json:"contents,omitempty"`
}

// LineClient implements Pusher against the LINE Messaging API.
type LineClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewLineClient creates a push client with the given channel access token.
func NewLineClient(token string) *LineClient {
	return &LineClient{
		endpoint: defaultPushEndpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint overrides the push endpoint, used in tests.
func (c *LineClient) WithEndpoint(endpoint string) *LineClient {
	c.endpoint = endpoint
	return c
}

func (c *LineClient) Push(ctx context.Context, lineUserID string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"to":       lineUserID,
		"messages": messages,
	})
	if err != nil {
		return fmt.Errorf("encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrPushFailed, resp.StatusCode)
	}
	return nil
}

// NopPusher is used when no channel token is configured.
type NopPusher struct{}

func (NopPusher) Push(_ context.Context, _ string, _ []Message) error { return nil }

var (
	_ Pusher = (*LineClient)(nil)
	_ Pusher = NopPusher{}
)

// RecommendationReadyMessages builds the push sent when a gift
// recommendation completes: a short text plus a flex bubble linking to the
// result page.
func RecommendationReadyMessages(origin, giftID string, recipientName, occasion *string) []Message {
	resultURL := strings.TrimRight(origin, "/") + "/gift/result/" + giftID

	return []Message{
		{
			Type: "text",
			Text: "Your gift recommendation is ready.",
		},
		{
			Type:    "flex",
			AltText: "Gift recommendation completed",
			Contents: map[string]any{
				"type": "bubble",
				"body": map[string]any{
					"type":   "box",
					"layout": "vertical",
					"contents": []map[string]any{
						{
							"type":   "text",
							"text":   "Gift recommendation completed",
							"weight": "bold",
							"size":   "md",
						},
						{
							"type":   "text",
							"text":   detailLine(recipientName, occasion),
							"wrap":   true,
							"size":   "sm",
							"margin": "md",
							"color":  "#666666",
						},
					},
				},
				"footer": map[string]any{
					"type":   "box",
					"layout": "vertical",
					"contents": []map[string]any{
						{
							"type":   "button",
							"style":  "primary",
							"height": "sm",
							"action": map[string]any{
								"type":  "uri",
								"label": "View recommendation",
								"uri":   resultURL,
							},
						},
					},
				},
			},
		},
	}
}

func detailLine(recipientName, occasion *string) string {
	recipient := "your recipient"
	if recipientName != nil && *recipientName != "" {
		recipient = *recipientName
	}
	if occasion != nil && *occasion != "" {
		return fmt.Sprintf("A sake pick for %s (%s) is ready to view.", recipient, *occasion)
	}
	return fmt.Sprintf("A sake pick for %s is ready to view.", recipient)
}
