package audit

import (
	"log/slog"

	"github.com/printwatch/printwatch/internal/alert"
)

// Event is one audited action. Data carries event-specific key/value pairs.
type Event struct {
	Type        string
	Title       string
	Description string
	Data        map[string]string
	Severity    alert.Severity
	Success     bool
}

// Sink receives audit events. Implementations must be fire-and-forget:
// a sink failure never fails the operation being audited.
type Sink interface {
	LogEvent(ev Event)
}

// SlogSink writes audit events to the process log.
type SlogSink struct{}

// LogEvent logs ev at a level derived from its severity and outcome.
func (SlogSink) LogEvent(ev Event) {
	attrs := []any{
		"type", ev.Type,
		"title", ev.Title,
		"severity", string(ev.Severity),
		"success", ev.Success,
	}
	if ev.Description != "" {
		attrs = append(attrs, "description", ev.Description)
	}
	for k, v := range ev.Data {
		attrs = append(attrs, k, v)
	}

	switch {
	case !ev.Success:
		slog.Warn("audit: "+ev.Type, attrs...)
	case ev.Severity == alert.SeverityCritical:
		slog.Warn("audit: "+ev.Type, attrs...)
	default:
		slog.Info("audit: "+ev.Type, attrs...)
	}
}
