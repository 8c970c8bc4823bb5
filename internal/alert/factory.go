package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory turns detected conditions into Alerts and matching
// NotificationRequests with severity-derived defaults.
type Factory struct {
	channels []Channel // all enabled channels, stable order
	now      func() time.Time

	mu         sync.RWMutex
	recipients []string // default recipient list from config
}

// NewFactory creates a Factory with the configured default recipients and
// the full set of enabled channels.
func NewFactory(recipients []string, channels []Channel) *Factory {
	return &Factory{
		recipients: recipients,
		channels:   channels,
		now:        time.Now,
	}
}

// SetRecipients replaces the default recipient list. Used by config hot
// reload; in-flight Build calls keep the list they already resolved.
func (f *Factory) SetRecipients(recipients []string) {
	f.mu.Lock()
	f.recipients = recipients
	f.mu.Unlock()
}

// Build constructs an Alert and its NotificationRequest from cond.
//
// Severity-derived defaults:
//   - critical → acknowledgment required, all enabled channels;
//   - anything else → no acknowledgment, enabled channels minus sms
//     (SMS is reserved for critical to bound cost and spam).
//
// Recipients fall back to the configured default list when the caller
// supplies none. An empty resolved channel set is a configuration error,
// not a silent no-op.
func (f *Factory) Build(cond Condition, recipients []string) (Alert, *NotificationRequest, error) {
	now := f.now()

	title := cond.Title
	if title == "" {
		title = fmt.Sprintf("Printer %s: %s", cond.PrinterID, cond.Type)
	}

	a := Alert{
		ID:            uuid.NewString(),
		PrinterID:     cond.PrinterID,
		ConditionType: cond.Type,
		Title:         title,
		Description: fmt.Sprintf("Condition %q fired on printer %s (value %.2f)",
			cond.Condition, cond.PrinterID, cond.Value),
		Severity:      cond.Severity,
		CreatedAt:     now,
		Source:        "poller",
		AutoGenerated: true,
	}

	if len(recipients) == 0 {
		f.mu.RLock()
		recipients = f.recipients
		f.mu.RUnlock()
	}

	channels := f.channelsFor(cond.Severity)
	if len(channels) == 0 {
		return a, nil, fmt.Errorf("alert factory: no channels enabled for severity %s", cond.Severity)
	}
	if len(recipients) == 0 {
		return a, nil, fmt.Errorf("alert factory: no recipients configured")
	}

	req := &NotificationRequest{
		ID:         uuid.NewString(),
		Title:      title,
		Message:    a.Description,
		Severity:   cond.Severity,
		Recipients: recipients,
		Channels:   channels,
		RequireAck: cond.Severity == SeverityCritical,
		Metadata: map[string]string{
			"alert_id":       a.ID,
			"printer_id":     cond.PrinterID,
			"condition_type": cond.Type,
			"observed_value": fmt.Sprintf("%.2f", cond.Value),
		},
	}
	return a, req, nil
}

// channelsFor resolves the channel set for a severity. SMS is critical-only.
func (f *Factory) channelsFor(sev Severity) []Channel {
	if sev == SeverityCritical {
		out := make([]Channel, len(f.channels))
		copy(out, f.channels)
		return out
	}
	out := make([]Channel, 0, len(f.channels))
	for _, c := range f.channels {
		if c == ChannelSMS {
			continue
		}
		out = append(out, c)
	}
	return out
}
