package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Oliunekits/price-tracker-bot/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier delivers a rendered alert to its owner
type Notifier interface {
	Send(ctx context.Context, ownerID int64, text string) error
}

// DefaultTelegramBaseURL is the Telegram Bot API root
const DefaultTelegramBaseURL = "https://api.telegram.org"

// NewNotifier creates the notifier selected by configuration
func NewNotifier(cfg config.NotifierConfig, timeout time.Duration, log *zap.Logger) (Notifier, error) {
	switch cfg.Type {
	case "telegram":
		return NewTelegramNotifier(cfg.Telegram.BaseURL, cfg.Telegram.Token, timeout), nil
	case "webhook":
		return NewWebhookNotifier(cfg.Webhook.URL, timeout), nil
	case "log":
		return NewLogNotifier(log), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.Type)
	}
}

// TelegramNotifier sends alerts through the Telegram Bot API
type TelegramNotifier struct {
	client *resty.Client
	token  string
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(baseURL, token string, timeout time.Duration) *TelegramNotifier {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	return &TelegramNotifier{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
		token: token,
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts an HTML message to the owner's chat
func (n *TelegramNotifier) Send(ctx context.Context, ownerID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  ownerID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	var body telegramResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&body).
		SetError(&body).
		Post("/bot" + n.token + "/sendMessage")

	if err != nil {
		return &DeliveryError{Sink: "telegram", OwnerID: ownerID, Err: fmt.Errorf("telegram API request failed: %w", err)}
	}

	if resp.IsError() || !body.OK {
		return &DeliveryError{Sink: "telegram", OwnerID: ownerID,
			Err: fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode(), body.Description)}
	}

	return nil
}

// WebhookNotifier posts alerts as JSON to a generic webhook
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// WebhookPayload is the JSON body posted to a webhook
type WebhookPayload struct {
	OwnerID int64     `json:"owner_id"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

// Send posts the alert to the webhook
func (n *WebhookNotifier) Send(ctx context.Context, ownerID int64, text string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(WebhookPayload{OwnerID: ownerID, Text: text, SentAt: time.Now().UTC()}).
		Post(n.url)

	if err != nil {
		return &DeliveryError{Sink: "webhook", OwnerID: ownerID, Err: fmt.Errorf("webhook request failed: %w", err)}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &DeliveryError{Sink: "webhook", OwnerID: ownerID,
			Err: fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())}
	}

	return nil
}

// LogNotifier writes alerts to the log instead of delivering them
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a new log-only notifier
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the alert
func (n *LogNotifier) Send(_ context.Context, ownerID int64, text string) error {
	n.log.Info("alert", zap.Int64("owner_id", ownerID), zap.String("text", text))
	return nil
}
