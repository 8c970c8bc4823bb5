package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
)

// SMS delivers notifications through an HTTP SMS gateway.
//
// SMS is reserved for critical notifications: a non-critical request is
// short-circuited to an immediate zero-recipient success without touching
// the gateway, keeping the response shape uniform for callers while
// bounding cost and spam.
type SMS struct {
	cfg    config.SMSConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewSMS creates the SMS gateway adapter from config.
func NewSMS(cfg config.SMSConfig) *SMS {
	return &SMS{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultSendTimeout},
		cb:     newBreaker("sms"),
	}
}

func (s *SMS) Name() alert.Channel { return alert.ChannelSMS }

// Send truncates the message to the configured length and posts it to the
// gateway with a bearer token.
func (s *SMS) Send(ctx context.Context, req *alert.NotificationRequest) alert.NotificationResponse {
	if req.Severity != alert.SeverityCritical {
		// Intentional no-op, not a failure.
		return alert.NotificationResponse{
			NotificationID: req.ID,
			Channel:        alert.ChannelSMS,
			SentAt:         time.Now(),
			Success:        true,
			RecipientCount: 0,
		}
	}

	url := s.cfg.GatewayURL()
	if url == "" {
		return failure(req, alert.ChannelSMS, "sms gateway URL not configured")
	}

	text := truncate(fmt.Sprintf("%s %s: %s", severityLabel(req.Severity), req.Title, req.Message), s.cfg.MaxLength)
	body, _ := json.Marshal(map[string]interface{}{
		"to":      req.Recipients,
		"message": text,
	})

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.postGateway(ctx, url, body)
	})
	if err != nil {
		return failure(req, alert.ChannelSMS, fmt.Sprintf("sms delivery: %v", err))
	}
	return success(req, alert.ChannelSMS, len(req.Recipients))
}

// postGateway posts to the gateway with the bearer token attached.
func (s *SMS) postGateway(ctx context.Context, url string, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if tok := s.cfg.Token(); tok != "" {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune at
// the cut point.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	keep := max
	marker := ""
	if max > 3 {
		keep = max - 3
		marker = "..."
	}
	for keep > 0 && !utf8.RuneStart(s[keep]) {
		keep--
	}
	return s[:keep] + marker
}
