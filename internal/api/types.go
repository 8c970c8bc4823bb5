package api

import "github.com/printwatch/printwatch/internal/alert"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State         string `json:"state"`
	AlertCount    int    `json:"alert_count"`
	CriticalCount int    `json:"critical_count"`
	HighCount     int    `json:"high_count"`
	MediumCount   int    `json:"medium_count"`
	LowCount      int    `json:"low_count"`
}

// AlertsResponse is the payload for GET /api/v1/alerts.
type AlertsResponse struct {
	Alerts      []alert.Alert `json:"alerts"`
	GeneratedAt string        `json:"generated_at"` // RFC3339
}

// EscalationsResponse is the payload for GET /api/v1/escalations/{id}.
type EscalationsResponse struct {
	NotificationID string                   `json:"notification_id"`
	Acknowledged   bool                     `json:"acknowledged"`
	Records        []alert.EscalationRecord `json:"records"`
}

// AcknowledgeRequest is the body for POST /api/v1/acknowledgments.
type AcknowledgeRequest struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Comment        string `json:"comment,omitempty"`
}

// AcknowledgeResponse reports whether the acknowledgment was recorded.
// Acknowledged false means already-handled or unknown, not a hard failure.
type AcknowledgeResponse struct {
	NotificationID string `json:"notification_id"`
	Acknowledged   bool   `json:"acknowledged"`
}

type errorResponse struct {
	Error string `json:"error"`
}
