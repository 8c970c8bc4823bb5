package history

import (
	"context"
	"time"

	"github.com/printwatch/printwatch/internal/alert"
)

// AlertHistory is the persistence contract for alerts. The deduplicator
// reads it and the processing pipeline writes it; implementations must be
// safe for concurrent readers and writers.
type AlertHistory interface {
	// GetRecent returns alerts for (printerID, conditionType) created
	// within the window, newest first.
	GetRecent(ctx context.Context, printerID, conditionType string, window time.Duration) ([]alert.Alert, error)

	// Recent returns all alerts created within the window, newest first.
	Recent(ctx context.Context, window time.Duration) ([]alert.Alert, error)

	// Save appends a new alert.
	Save(ctx context.Context, a alert.Alert) error
}

// EscalationHistory is the persistence contract for escalation records and
// acknowledgments. Append-only for records; at most one acknowledgment per
// notification ID is ever relevant.
type EscalationHistory interface {
	// Append adds one escalation record.
	Append(ctx context.Context, rec alert.EscalationRecord) error

	// Query returns all records for a notification ID in append order.
	Query(ctx context.Context, notificationID string) ([]alert.EscalationRecord, error)

	// IsAcknowledged reports whether an acknowledgment exists for the ID.
	IsAcknowledged(ctx context.Context, notificationID string) (bool, error)

	// Acknowledge records ev if the notification is known and not yet
	// acknowledged. It returns false for unknown or already-acknowledged
	// IDs; not a hard failure.
	Acknowledge(ctx context.Context, ev alert.AcknowledgmentEvent) bool
}
