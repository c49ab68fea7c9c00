// Package twilio sends WhatsApp messages through the Twilio Messages API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/inspira/dailyquote/internal/config"
	"github.com/inspira/dailyquote/internal/pkg/httpretry"
)

// Client is a Twilio Messages API client addressing the WhatsApp channel.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	httpClient httpretry.Doer
}

// NewClient creates a Twilio client from configuration.
func NewClient(cfg config.TwilioConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.WhatsAppFrom,
		httpClient: httpretry.New(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// SendWhatsApp delivers a text message to the given E.164 phone number over
// the WhatsApp channel and returns the provider message SID.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("From", "whatsapp:"+c.from)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("Twilio API error (status %d, code %d): %s",
				resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("Twilio API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return "", fmt.Errorf("parsing message response: %w", err)
	}
	return msg.SID, nil
}
