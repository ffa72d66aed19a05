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

// WebhookNotifier sends alerts via webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookOption configures the webhook notifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	notifier := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier
}

// Notify sends an alert to webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, msg AlertMessage) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatAlertMessage(msg)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

func formatAlertMessage(msg AlertMessage) string {
	var b strings.Builder
	b.WriteString("[Reconciliation Confirmed]\n")
	if msg.Level != "" && msg.Level != LevelInfo {
		fmt.Fprintf(&b, "Level: %s\n", msg.Level)
	}
	if msg.TenantID != "" {
		fmt.Fprintf(&b, "Tenant: %s\n", msg.TenantID)
	}
	if msg.AccountLabel != "" {
		fmt.Fprintf(&b, "Account: %s\n", msg.AccountLabel)
	}
	if msg.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", msg.SessionID)
	}
	if msg.ResultID != "" {
		fmt.Fprintf(&b, "Result: %s\n", msg.ResultID)
	}
	fmt.Fprintf(&b, "Operations: %d\n", msg.OperationCount)
	fmt.Fprintf(&b, "Match Rate: %d%%\n", msg.MatchRate)
	if msg.BalanceGap != "" {
		fmt.Fprintf(&b, "Balance Gap: %s\n", msg.BalanceGap)
	}
	if msg.Comments != "" {
		fmt.Fprintf(&b, "Comments: %s\n", msg.Comments)
	}
	return strings.TrimSpace(b.String())
}
