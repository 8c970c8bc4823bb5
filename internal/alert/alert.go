package alert

import "time"

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps a config string to a Severity, defaulting to medium
// for empty or unknown values.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s)
	default:
		return SeverityMedium
	}
}

// Channel identifies one notification delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSlack Channel = "slack"
	ChannelTeams Channel = "teams"
	ChannelSMS   Channel = "sms"
)

// Condition is one detected abnormal fact about a printer, produced by the
// poller. Read-only to everything downstream.
type Condition struct {
	PrinterID  string
	Type       string // rule name, e.g. "toner_low", "printer_offline"
	Value      float64
	Condition  string // the rule expression that fired
	Severity   Severity
	Title      string // optional rule-provided title
	ObservedAt time.Time
}

// Alert is a normalized record of a detected condition. Immutable after
// creation; persisted through the alert history repository.
type Alert struct {
	ID            string    `json:"id"`
	PrinterID     string    `json:"printer_id"`
	ConditionType string    `json:"condition_type"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Severity      Severity  `json:"severity"`
	CreatedAt     time.Time `json:"created_at"`
	Source        string    `json:"source"`
	AutoGenerated bool      `json:"auto_generated"`
}

// NotificationRequest is one dispatch attempt across a set of channels.
// Requests are built fresh per attempt; escalation builds a new request
// with a widened recipient set rather than mutating an old one.
type NotificationRequest struct {
	ID         string
	Title      string
	Message    string
	Severity   Severity
	Recipients []string
	Channels   []Channel
	RequireAck bool
	Metadata   map[string]string
}

// NotificationResponse is the outcome of one (request, channel) delivery
// attempt. One response per channel, regardless of individual failures.
type NotificationResponse struct {
	NotificationID string    `json:"notification_id"`
	Channel        Channel   `json:"channel"`
	SentAt         time.Time `json:"sent_at"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	RecipientCount int       `json:"recipient_count"`
}

// EscalationRecord is one row of append-only escalation history. A record
// is written at level 1 when tracking starts and at every tier transition.
type EscalationRecord struct {
	NotificationID      string    `json:"notification_id"`
	Level               int       `json:"level"`
	Channel             Channel   `json:"channel"`
	OriginalRecipients  []string  `json:"original_recipients"`
	EscalatedRecipients []string  `json:"escalated_recipients"`
	Reason              string    `json:"reason"`
	ResponseTimeMinutes int       `json:"response_time_minutes"`
	SentAt              time.Time `json:"sent_at"`
	EscalatedAt         time.Time `json:"escalated_at"`
	Successful          bool      `json:"successful"`
	CreatedBy           string    `json:"created_by"`
}

// AcknowledgmentEvent records a user acknowledging a notification. The first
// event for a notification ID halts further escalation for that ID.
type AcknowledgmentEvent struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Comment        string    `json:"comment,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}
