// Package push delivers alerts through the Expo push notification service.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const (
	// DefaultURL is the Expo push send endpoint.
	DefaultURL = "https://exp.host/--/api/v2/push/send"
	// ChunkSize is the most messages Expo accepts in one request.
	ChunkSize      = 100
	defaultTimeout = 15 * time.Second
)

var tokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[.+\]$`)

// IsExpoPushToken reports whether token looks like an Expo push token.
func IsExpoPushToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Message is one Expo push message.
type Message struct {
	To        string         `json:"to"`
	Title     string         `json:"title,omitempty"`
	Body      string         `json:"body,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Sound     string         `json:"sound,omitempty"`
	Priority  string         `json:"priority,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
}

// Ticket is Expo's per-message receipt for a send request.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// OK reports whether Expo accepted the message.
func (t Ticket) OK() bool { return t.Status == "ok" }

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Expo push API.
type Client struct {
	url         string
	accessToken string
	httpClient  HTTPClient
}

// NewClient returns an Expo client. Empty url uses DefaultURL; nil httpClient uses a client with a 15s timeout.
func NewClient(url, accessToken string, httpClient HTTPClient) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{url: url, accessToken: accessToken, httpClient: httpClient}
}

type sendResponse struct {
	Data   []Ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send posts one chunk of messages and returns a ticket per message.
func (c *Client) Send(ctx context.Context, msgs []Message) ([]Ticket, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	if len(msgs) > ChunkSize {
		return nil, fmt.Errorf("push: %d messages exceeds chunk size %d", len(msgs), ChunkSize)
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("push: request failed status=%d body=%s", resp.StatusCode, string(body))
	}
	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("push: decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("push: %s: %s", out.Errors[0].Code, out.Errors[0].Message)
	}
	return out.Data, nil
}

// Chunk splits msgs into request-sized groups.
func Chunk(msgs []Message) [][]Message {
	var chunks [][]Message
	for len(msgs) > ChunkSize {
		chunks = append(chunks, msgs[:ChunkSize])
		msgs = msgs[ChunkSize:]
	}
	if len(msgs) > 0 {
		chunks = append(chunks, msgs)
	}
	return chunks
}
