// Package sms delivers alerts as bulk text messages through SMS Local.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	// DefaultBaseURL is the SMS Local bulk send endpoint.
	DefaultBaseURL = "https://app.smslocal.in/api/smsapi"
)

// SMSLocalClient sends bulk SMS via the SMS Local API.
type SMSLocalClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSLocalClient returns a client that uses the given API key and optional base URL/sender.
func NewSMSLocalClient(apiKey, baseURL, sender string) *SMSLocalClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &SMSLocalClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendBulk sends message to every number in one request. Numbers are comma-joined.
func (c *SMSLocalClient) SendBulk(ctx context.Context, numbers []string, message string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	if len(numbers) == 0 {
		return fmt.Errorf("sms: no numbers")
	}
	body := map[string]interface{}{
		"route":   "q",
		"numbers": strings.Join(numbers, ","),
		"message": message,
	}
	if c.Sender != "" {
		body["sender_id"] = c.Sender
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
