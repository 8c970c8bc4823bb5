package channel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/printwatch/printwatch/internal/alert"
)

const defaultSendTimeout = 10 * time.Second

// Adapter delivers one notification request through one transport. Send
// never panics and never propagates a transport error; failures are
// reported in the response so sibling channels are unaffected.
type Adapter interface {
	Name() alert.Channel
	Send(ctx context.Context, req *alert.NotificationRequest) alert.NotificationResponse
}

// failure builds a failed response for one channel attempt.
func failure(req *alert.NotificationRequest, ch alert.Channel, msg string) alert.NotificationResponse {
	return alert.NotificationResponse{
		NotificationID: req.ID,
		Channel:        ch,
		SentAt:         time.Now(),
		Success:        false,
		ErrorMessage:   msg,
	}
}

// success builds a successful response for one channel attempt.
func success(req *alert.NotificationRequest, ch alert.Channel, recipients int) alert.NotificationResponse {
	return alert.NotificationResponse{
		NotificationID: req.ID,
		Channel:        ch,
		SentAt:         time.Now(),
		Success:        true,
		RecipientCount: recipients,
	}
}

// newBreaker creates the circuit breaker shared by the HTTP-backed adapters.
// Five consecutive transport failures open the circuit; after a minute one
// probe request is allowed through.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("channel: circuit breaker state change",
				"channel", name, "from", from.String(), "to", to.String())
		},
	})
}

// post sends body as JSON to url and treats any HTTP status >= 400 as an error.
func post(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "[CRITICAL]"
	case alert.SeverityHigh:
		return "[HIGH]"
	case alert.SeverityMedium:
		return "[MEDIUM]"
	default:
		return "[LOW]"
	}
}

func severityColor(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "FF4F6A"
	case alert.SeverityHigh:
		return "FFAB40"
	case alert.SeverityMedium:
		return "FFD54F"
	default:
		return "00D4FF"
	}
}
