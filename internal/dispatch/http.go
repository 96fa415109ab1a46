package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
)

// SignatureHeader carries the HMAC-SHA256 of a webhook body
const SignatureHeader = "X-Webhook-Signature"

// SlackSender posts to Slack incoming webhooks
type SlackSender struct {
	client *http.Client
}

// NewSlackSender creates a Slack sender. A nil client uses http.DefaultClient.
func NewSlackSender(client *http.Client) *SlackSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &SlackSender{client: client}
}

// Medium returns the Slack medium
func (s *SlackSender) Medium() notification.Medium {
	return notification.MediumSlack
}

// Send posts the message to the destination webhook
func (s *SlackSender) Send(ctx context.Context, d *notification.Destination, msg *notification.Message) error {
	var settings notification.SlackSettings
	if err := json.Unmarshal(d.Settings, &settings); err != nil || settings.WebhookURL == "" {
		return backoff.Permanent(fmt.Errorf("destination %d has no Slack webhook URL", d.ID))
	}

	payload, err := json.Marshal(slackMessage(settings, msg))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal Slack message: %w", err))
	}
	return post(ctx, s.client, settings.WebhookURL, payload, nil)
}

// slackMessage builds the Slack payload
func slackMessage(settings notification.SlackSettings, msg *notification.Message) map[string]interface{} {
	color := "#36a64f"
	switch msg.Level {
	case 1:
		color = "#ff0000"
	case 2:
		color = "#ff8c00"
	case 3:
		color = "#ffcc00"
	}

	m := map[string]interface{}{
		"text": msg.Subject,
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  msg.Subject,
				"text":   msg.Body,
				"footer": "alertroute",
				"ts":     msg.Timestamp.Unix(),
			},
		},
	}
	if settings.Channel != "" {
		m["channel"] = settings.Channel
	}
	if settings.Username != "" {
		m["username"] = settings.Username
	}
	return m
}

// WebhookSender posts the message as JSON to generic webhooks
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a webhook sender. A nil client uses http.DefaultClient.
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{client: client}
}

// Medium returns the webhook medium
func (s *WebhookSender) Medium() notification.Medium {
	return notification.MediumWebhook
}

// Send posts the message, signed when the destination has a secret
func (s *WebhookSender) Send(ctx context.Context, d *notification.Destination, msg *notification.Message) error {
	var settings notification.WebhookSettings
	if err := json.Unmarshal(d.Settings, &settings); err != nil || settings.URL == "" {
		return backoff.Permanent(fmt.Errorf("destination %d has no webhook URL", d.ID))
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal payload: %w", err))
	}

	headers := map[string]string{
		"X-Webhook-Event":     msg.EventType,
		"X-Webhook-Timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if settings.Secret != "" {
		headers[SignatureHeader] = Sign(payload, settings.Secret)
	}
	return post(ctx, s.client, settings.URL, payload, headers)
}

// Sign returns the signature header value of payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// post sends a JSON body. Client errors other than 429 are not retried.
func post(ctx context.Context, client *http.Client, url string, payload []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}
