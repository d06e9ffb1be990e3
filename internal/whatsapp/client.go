// Package whatsapp sends operator notifications through the Twilio WhatsApp
// messaging API.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/triagemhq/triagemd/internal/config"
)

const defaultBaseURL = "https://api.twilio.com"

const defaultTimeout = 15 * time.Second

// SendError reports a failed Twilio call.
type SendError struct {
	StatusCode int
	Message    string
}

func (e *SendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("whatsapp: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("whatsapp: %s", e.Message)
}

// Client sends WhatsApp messages via Twilio.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string

	AccountSID string
	AuthToken  string
	FromNumber string
}

// New builds a Client from configuration.
func New(cfg config.WhatsAppConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    defaultBaseURL,
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		FromNumber: cfg.FromNumber,
	}
}

// Message is the accepted-message receipt returned by Twilio.
type Message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
}

// Send delivers body to the given phone number over WhatsApp. The number is
// E.164; the whatsapp: prefix is added here.
func (c *Client) Send(ctx context.Context, to, body string) (*Message, error) {
	if strings.TrimSpace(to) == "" {
		return nil, &SendError{Message: "recipient number is required"}
	}

	form := url.Values{}
	form.Set("From", waAddress(c.FromNumber))
	form.Set("To", waAddress(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.BaseURL, c.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.AccountSID, c.AuthToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &SendError{Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &SendError{StatusCode: resp.StatusCode, Message: string(payload)}
	}

	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, &SendError{Message: fmt.Sprintf("decode response: %v", err)}
	}

	return &msg, nil
}

func waAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
