package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/history"
)

// Dispatcher fans a notification request out across channels.
// Satisfied by dispatch.Engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *alert.NotificationRequest) []alert.NotificationResponse
}

// Tracker starts escalation tracking for a dispatched notification.
// Satisfied by escalate.Escalator.
type Tracker interface {
	Start(ctx context.Context, notificationID, title string, recipients []string, sev alert.Severity, metadata map[string]string) error
}

// Processor runs one detected condition through the alerting pipeline:
// dedup check → alert construction → persistence → fan-out dispatch →
// escalation tracking for delivered critical notifications.
type Processor struct {
	dedup     *alert.Deduplicator
	factory   *alert.Factory
	alerts    history.AlertHistory
	dispatch  Dispatcher
	escalator Tracker
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(dedup *alert.Deduplicator, factory *alert.Factory, alerts history.AlertHistory, d Dispatcher, esc Tracker) *Processor {
	return &Processor{
		dedup:     dedup,
		factory:   factory,
		alerts:    alerts,
		dispatch:  d,
		escalator: esc,
	}
}

// Process handles one condition end to end. A suppressed duplicate is an
// intentional no-op, not an error. The returned error covers configuration
// problems only (empty channel or recipient set); delivery failures are
// carried in the responses and audit trail, never raised here.
func (p *Processor) Process(ctx context.Context, cond alert.Condition) error {
	if !p.dedup.CanTrigger(ctx, cond.PrinterID, cond.Type) {
		slog.Debug("detect: duplicate suppressed",
			"printer", cond.PrinterID, "condition", cond.Type, "window", p.dedup.Window())
		return nil
	}

	a, req, err := p.factory.Build(cond, nil)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	if err := p.alerts.Save(ctx, a); err != nil {
		// The notification still goes out; dedup may re-fire early but a
		// storage hiccup must not swallow the alert.
		slog.Warn("detect: alert save failed",
			"alert", a.ID, "printer", a.PrinterID, "err", err)
	}

	slog.Info("detect: alert fired",
		"alert", a.ID,
		"printer", a.PrinterID,
		"condition", a.ConditionType,
		"severity", a.Severity,
		"value", cond.Value,
	)

	responses := p.dispatch.Dispatch(ctx, req)
	delivered := false
	for _, r := range responses {
		if r.Success {
			delivered = true
			break
		}
	}

	if a.Severity == alert.SeverityCritical && delivered {
		if err := p.escalator.Start(ctx, req.ID, req.Title, req.Recipients, req.Severity, req.Metadata); err != nil {
			slog.Error("detect: escalation tracking failed to start",
				"notification", req.ID, "err", err)
		}
	}
	return nil
}
