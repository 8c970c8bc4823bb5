package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
	"github.com/printwatch/printwatch/internal/history"
)

const (
	// maxLevel is the final escalation tier; the chain stops there.
	maxLevel = 3

	createdBy = "printwatch"
)

// Dispatcher re-delivers escalation notices. Satisfied by dispatch.Engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *alert.NotificationRequest) []alert.NotificationResponse
}

// Escalator drives the tiered escalation state machine for critical,
// acknowledgment-required notifications:
//
//	Initial → WaitingAck(level) → {Acknowledged | Escalated(level+1)} → … → MaxEscalation(3)
//
// Each tracked notification owns at most one pending timer. When a timer
// fires, the acknowledgment state is re-read from the repository immediately
// before escalating, never trusted from a value cached at arm time, so an
// acknowledgment that races a firing check still wins.
//
// Escalator is safe for concurrent use.
type Escalator struct {
	history  history.EscalationHistory
	dispatch Dispatcher
	base     time.Duration

	now func() time.Time // injectable for deterministic tests

	mu          sync.Mutex
	supervisors []string // tier-2 recipients
	managers    []string // tier-3 recipients
	pending     map[string]*time.Timer
	stopped     bool
}

// New creates an Escalator with the configured tier recipients and base
// delay (15 minutes in production; tier N waits N * base before the next
// acknowledgment check).
func New(hist history.EscalationHistory, d Dispatcher, cfg config.EscalationConfig) *Escalator {
	return &Escalator{
		history:     hist,
		dispatch:    d,
		supervisors: cfg.Supervisors,
		managers:    cfg.Managers,
		base:        cfg.BaseDelay,
		now:         time.Now,
		pending:     make(map[string]*time.Timer),
	}
}

// Start begins escalation tracking for a dispatched notification. It is a
// no-op for non-critical severities. A level-1 record is appended with the
// original recipients, then the first acknowledgment check is armed one
// base delay out.
func (e *Escalator) Start(ctx context.Context, notificationID, title string, recipients []string, sev alert.Severity, metadata map[string]string) error {
	if sev != alert.SeverityCritical {
		return nil
	}

	now := e.now()
	rec := alert.EscalationRecord{
		NotificationID:      notificationID,
		Level:               1,
		Channel:             alert.ChannelEmail,
		OriginalRecipients:  recipients,
		EscalatedRecipients: recipients,
		Reason:              "Initial notification sent",
		SentAt:              now,
		EscalatedAt:         now,
		Successful:          true,
		CreatedBy:           createdBy,
	}
	if err := e.history.Append(ctx, rec); err != nil {
		return fmt.Errorf("escalate: append initial record: %w", err)
	}

	slog.Info("escalate: tracking started",
		"notification", notificationID, "check_in", e.base)
	e.arm(notificationID, title, recipients, metadata, 1, e.base)
	return nil
}

// Acknowledge idempotently records an acknowledgment and cancels any
// pending check for the notification. It returns false when the ID is
// unknown or already acknowledged; not a hard failure.
func (e *Escalator) Acknowledge(ctx context.Context, notificationID, userID, comment string) bool {
	recorded := e.history.Acknowledge(ctx, alert.AcknowledgmentEvent{
		NotificationID: notificationID,
		UserID:         userID,
		Comment:        comment,
		AcknowledgedAt: e.now(),
	})

	e.mu.Lock()
	if t, ok := e.pending[notificationID]; ok {
		t.Stop()
		delete(e.pending, notificationID)
	}
	e.mu.Unlock()

	if recorded {
		slog.Info("escalate: acknowledged",
			"notification", notificationID, "user", userID)
	}
	return recorded
}

// SetTiers replaces the supervisor and manager recipient lists. Used by
// config hot reload; already-armed checks pick up the new lists when they
// fire.
func (e *Escalator) SetTiers(supervisors, managers []string) {
	e.mu.Lock()
	e.supervisors = supervisors
	e.managers = managers
	e.mu.Unlock()
	slog.Info("escalate: tier recipients reloaded",
		"supervisors", len(supervisors), "managers", len(managers))
}

// Stop cancels every pending timer. Further Start calls arm nothing.
func (e *Escalator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for id, t := range e.pending {
		t.Stop()
		delete(e.pending, id)
	}
}

// Pending returns the number of notifications with an armed check.
func (e *Escalator) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// arm schedules the acknowledgment check that follows level after delay.
// Invariant: at most one timer per notification; any leftover timer is
// stopped before the new one is stored.
func (e *Escalator) arm(notificationID, title string, origRecipients []string, metadata map[string]string, level int, delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if old, ok := e.pending[notificationID]; ok {
		old.Stop()
	}
	e.pending[notificationID] = time.AfterFunc(delay, func() {
		e.check(notificationID, title, origRecipients, metadata, level)
	})
}

// check fires when a suspension elapses. It re-reads acknowledgment state
// atomically before deciding: acknowledged is terminal, otherwise the chain
// escalates to level+1.
func (e *Escalator) check(notificationID, title string, origRecipients []string, metadata map[string]string, level int) {
	e.mu.Lock()
	delete(e.pending, notificationID)
	e.mu.Unlock()

	ctx := context.Background()

	acked, err := e.history.IsAcknowledged(ctx, notificationID)
	if err != nil {
		// An unreadable ack state counts as unacknowledged.
		slog.Warn("escalate: acknowledgment lookup failed, proceeding",
			"notification", notificationID, "err", err)
	}
	if acked {
		slog.Info("escalate: acknowledged before check, halting",
			"notification", notificationID, "level", level)
		return
	}

	e.escalate(ctx, notificationID, title, origRecipients, metadata, level+1)
}

// escalate widens the recipient set per the tier table, re-dispatches an
// escalation notice over email, appends the history record, and either arms
// the next check or terminates at the maximum tier.
func (e *Escalator) escalate(ctx context.Context, notificationID, title string, origRecipients []string, metadata map[string]string, level int) {
	recipients, tierName := e.tier(level)
	if len(recipients) == 0 {
		slog.Error("escalate: no recipients configured for tier, stopping",
			"notification", notificationID, "level", level)
		return
	}

	baseMinutes := int(e.base.Minutes())
	reason := fmt.Sprintf("No response after %d minutes - escalating to %s",
		(level-1)*baseMinutes, tierName)

	req := e.buildNotice(notificationID, title, recipients, metadata, level, reason)
	responses := e.dispatch.Dispatch(ctx, req)
	delivered := false
	for _, r := range responses {
		if r.Success {
			delivered = true
			break
		}
	}

	now := e.now()
	rec := alert.EscalationRecord{
		NotificationID:      notificationID,
		Level:               level,
		Channel:             alert.ChannelEmail,
		OriginalRecipients:  origRecipients,
		EscalatedRecipients: recipients,
		Reason:              reason,
		ResponseTimeMinutes: level * baseMinutes,
		SentAt:              now,
		EscalatedAt:         now,
		Successful:          delivered,
		CreatedBy:           createdBy,
	}
	if err := e.history.Append(ctx, rec); err != nil {
		slog.Error("escalate: append record failed",
			"notification", notificationID, "level", level, "err", err)
	}

	if !delivered {
		// A failed step is recorded and logged; the chain keeps its schedule.
		slog.Error("escalate: notice delivery failed on all channels",
			"notification", notificationID, "level", level)
	}

	if level >= maxLevel {
		slog.Warn("escalate: reached maximum escalation, no further action",
			"notification", notificationID, "level", level)
		return
	}

	next := time.Duration(level) * e.base
	slog.Info("escalate: escalated",
		"notification", notificationID, "level", level, "next_check_in", next)
	e.arm(notificationID, title, origRecipients, metadata, level, next)
}

// tier returns the recipient expansion for a level. The table is
// configuration data, not computed.
func (e *Escalator) tier(level int) ([]string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch level {
	case 2:
		return e.supervisors, "supervisors"
	default:
		return e.managers, "managers and directors"
	}
}

// buildNotice builds the fresh request for one escalation tier. Notices go
// out over email only and reference the original notification via metadata.
func (e *Escalator) buildNotice(notificationID, title string, recipients []string, metadata map[string]string, level int, reason string) *alert.NotificationRequest {
	md := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		md[k] = v
	}
	md["original_notification_id"] = notificationID
	md["escalation_level"] = fmt.Sprintf("%d", level)

	return &alert.NotificationRequest{
		ID:         uuid.NewString(),
		Title:      fmt.Sprintf("ESCALATION Level %d: %s", level, title),
		Message:    fmt.Sprintf("%s. Original notification %s remains unacknowledged.", reason, notificationID),
		Severity:   alert.SeverityCritical,
		Recipients: recipients,
		Channels:   []alert.Channel{alert.ChannelEmail},
		RequireAck: true,
		Metadata:   md,
	}
}
