// Package notify forwards messages to a Discord webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/dotareg/internal/metrics"
)

var (
	ErrInvalidWebhookURL = errors.New("invalid webhook URL")
	ErrEmptyMessage      = errors.New("message content is empty")
	ErrNotConfigured     = errors.New("no webhook is configured")
	ErrDeliveryFailed    = errors.New("webhook delivery failed")
)

// maxContentLength is Discord's message content limit
const maxContentLength = 2000

// Message is a webhook payload
type Message struct {
	Content  string
	Username string
}

// Dispatcher sends notifications
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds webhook settings
type Config struct {
	WebhookURL string
	// Username is used when a message does not set one
	Username string
	Timeout  time.Duration
}

// DefaultConfig returns default notification configuration
func DefaultConfig() Config {
	return Config{
		Username: "Dota Registration",
		Timeout:  5 * time.Second,
	}
}

// WebhookDispatcher executes a Discord webhook. Deliveries are attempted once.
type WebhookDispatcher struct {
	session   *discordgo.Session
	webhookID string
	token     string
	username  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewWebhookDispatcher creates a dispatcher for cfg.WebhookURL. client may be
// nil, in which case one with cfg.Timeout is created.
func NewWebhookDispatcher(cfg Config, client *http.Client, logger *slog.Logger, m *metrics.Metrics) (*WebhookDispatcher, error) {
	id, token, err := ParseWebhookURL(cfg.WebhookURL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Username == "" {
		cfg.Username = DefaultConfig().Username
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	session.Client = client
	session.MaxRestRetries = 0
	session.ShouldRetryOnRateLimit = false

	return &WebhookDispatcher{
		session:   session,
		webhookID: id,
		token:     token,
		username:  cfg.Username,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Send delivers msg. Failures are logged and returned, never retried.
func (d *WebhookDispatcher) Send(ctx context.Context, msg Message) error {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return ErrEmptyMessage
	}
	if len([]rune(content)) > maxContentLength {
		content = string([]rune(content)[:maxContentLength-1]) + "…"
	}
	username := msg.Username
	if username == "" {
		username = d.username
	}

	_, err := d.session.WebhookExecute(d.webhookID, d.token, false, &discordgo.WebhookParams{
		Content:  content,
		Username: username,
	}, discordgo.WithContext(ctx))
	if err != nil {
		d.metrics.Notification("failed")
		d.logger.ErrorContext(ctx, "webhook delivery failed", "error", err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	d.metrics.Notification("sent")
	return nil
}

// ParseWebhookURL extracts the id and token of a Discord webhook URL
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidWebhookURL, raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "webhooks" && i+2 < len(parts) && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidWebhookURL, raw)
}

// NopDispatcher drops messages. Used when no webhook is configured.
type NopDispatcher struct {
	logger *slog.Logger
}

// NewNopDispatcher creates a NopDispatcher
func NewNopDispatcher(logger *slog.Logger) *NopDispatcher {
	return &NopDispatcher{logger: logger}
}

// Send logs and discards msg
func (d *NopDispatcher) Send(ctx context.Context, msg Message) error {
	d.logger.DebugContext(ctx, "webhook not configured, dropping notification", "content", msg.Content)
	return ErrNotConfigured
}

// New returns a WebhookDispatcher, or a NopDispatcher when no URL is set
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) (Dispatcher, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return NewNopDispatcher(logger), nil
	}
	return NewWebhookDispatcher(cfg, nil, logger, m)
}
