package alert

import (
	"context"
	"log/slog"
	"time"
)

// RecentAlerts is the slice of the alert history repository the
// deduplicator needs.
type RecentAlerts interface {
	GetRecent(ctx context.Context, printerID, conditionType string, window time.Duration) ([]Alert, error)
}

// Deduplicator suppresses repeated alerts for the same (printer, condition
// type) pair within a time window.
type Deduplicator struct {
	history RecentAlerts
	window  time.Duration
}

// NewDeduplicator creates a Deduplicator over the given history with the
// given suppression window.
func NewDeduplicator(history RecentAlerts, window time.Duration) *Deduplicator {
	return &Deduplicator{history: history, window: window}
}

// Window returns the configured suppression window.
func (d *Deduplicator) Window() time.Duration { return d.window }

// CanTrigger reports whether a new alert for (printerID, conditionType) may
// fire. It returns false when an alert for the same pair already exists
// within the window.
//
// Fail-open: if the history lookup itself fails, CanTrigger returns true;
// losing a real alert is worse than one duplicate.
func (d *Deduplicator) CanTrigger(ctx context.Context, printerID, conditionType string) bool {
	recent, err := d.history.GetRecent(ctx, printerID, conditionType, d.window)
	if err != nil {
		slog.Warn("dedup: history lookup failed, allowing alert",
			"printer", printerID, "condition", conditionType, "err", err)
		return true
	}
	return len(recent) == 0
}
