// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DiscordNotifier delivers notifications to a Discord channel webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	enabled    bool
	mu         sync.RWMutex
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a Discord notifier.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Enabled reports whether this notifier will deliver.
func (n *DiscordNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *DiscordNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetWebhookURL updates the webhook URL.
func (n *DiscordNotifier) SetWebhookURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.webhookURL = url
}

// Send posts the notification as a Discord embed.
func (n *DiscordNotifier) Send(ctx context.Context, notification *Notification) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	n.mu.RUnlock()

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(notification)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(notification *Notification) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Chore", Value: notification.ChoreName, Inline: true},
	}
	if len(notification.Recipients) > 0 {
		fields = append(fields, discordEmbedField{
			Name:   "For",
			Value:  strings.Join(notification.Recipients, ", "),
			Inline: true,
		})
	}
	if notification.Points > 0 {
		fields = append(fields, discordEmbedField{
			Name:   "Points",
			Value:  fmt.Sprintf("%d", notification.Points),
			Inline: true,
		})
	}
	if !notification.DueAt.IsZero() {
		fields = append(fields, discordEmbedField{
			Name:   "Due",
			Value:  notification.DueAt.Format("Mon Jan 2 15:04"),
			Inline: true,
		})
	}

	return discordEmbed{
		Title:       notification.Title,
		Description: notification.Body,
		Color:       templateColor(notification.Template),
		Timestamp:   notification.SentAt.Format(time.RFC3339),
		Fields:      fields,
		Footer: discordEmbedFooter{
			Text: "Choreus",
		},
	}
}

func templateColor(template Template) int {
	switch template {
	case TemplateOverdue:
		return 0xFF0000 // Red
	case TemplateReminder, TemplateDueSoon:
		return 0xFFA500 // Orange
	case TemplateApproved:
		return 0x2ECC71 // Green
	case TemplateDisapproved:
		return 0xE74C3C // Dark red
	default:
		return 0x3498DB // Blue
	}
}

// Discord webhook structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
