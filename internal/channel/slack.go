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

// Slack delivers notifications to a Slack incoming webhook.
type Slack struct {
	cfg    config.WebhookConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewSlack creates the Slack adapter from config.
func NewSlack(cfg config.WebhookConfig) *Slack {
	return &Slack{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultSendTimeout},
		cb:     newBreaker("slack"),
	}
}

func (s *Slack) Name() alert.Channel { return alert.ChannelSlack }

// Send posts a formatted text message to the webhook. The recipient set is
// the channel the webhook targets; RecipientCount reflects the addressed
// users for parity with the other adapters.
func (s *Slack) Send(ctx context.Context, req *alert.NotificationRequest) alert.NotificationResponse {
	url := s.cfg.URL()
	if url == "" {
		return failure(req, alert.ChannelSlack, "slack webhook URL not configured")
	}

	text := fmt.Sprintf("*%s* %s\n%s", severityLabel(req.Severity), req.Title, req.Message)
	if req.RequireAck {
		text += "\n_This notification requires acknowledgment._"
	}
	body, _ := json.Marshal(map[string]string{"text": text})

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, post(ctx, s.client, url, body)
	})
	if err != nil {
		return failure(req, alert.ChannelSlack, fmt.Sprintf("slack delivery: %v", err))
	}
	return success(req, alert.ChannelSlack, len(req.Recipients))
}
