package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
)

// Teams delivers notifications to a Microsoft Teams incoming webhook as
// MessageCard payloads.
type Teams struct {
	cfg    config.WebhookConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewTeams creates the Teams adapter from config.
func NewTeams(cfg config.WebhookConfig) *Teams {
	return &Teams{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultSendTimeout},
		cb:     newBreaker("teams"),
	}
}

func (t *Teams) Name() alert.Channel { return alert.ChannelTeams }

// Send posts a MessageCard with a severity theme color to the webhook.
func (t *Teams) Send(ctx context.Context, req *alert.NotificationRequest) alert.NotificationResponse {
	url := t.cfg.URL()
	if url == "" {
		return failure(req, alert.ChannelTeams, "teams webhook URL not configured")
	}

	text := req.Message
	if req.RequireAck {
		text += "\n\n**This notification requires acknowledgment.**"
	}
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(req.Severity),
		"summary":    req.Title,
		"title":      fmt.Sprintf("printwatch: %s", req.Title),
		"text":       text,
	}
	body, _ := json.Marshal(payload)

	_, err := t.cb.Execute(func() (interface{}, error) {
		return nil, post(ctx, t.client, url, body)
	})
	if err != nil {
		return failure(req, alert.ChannelTeams, fmt.Sprintf("teams delivery: %v", err))
	}
	return success(req, alert.ChannelTeams, len(req.Recipients))
}
