package escalate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
	"github.com/printwatch/printwatch/internal/history"
)

// recordingDispatcher captures every request and reports success.
type recordingDispatcher struct {
	mu       sync.Mutex
	requests []*alert.NotificationRequest
	fail     bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req *alert.NotificationRequest) []alert.NotificationResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return []alert.NotificationResponse{{
		NotificationID: req.ID,
		Channel:        alert.ChannelEmail,
		Success:        !d.fail,
		ErrorMessage: func() string {
			if d.fail {
				return "relay down"
			}
			return ""
		}(),
		RecipientCount: len(req.Recipients),
	}}
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func testConfig(base time.Duration) config.EscalationConfig {
	return config.EscalationConfig{
		BaseDelay:   base,
		Supervisors: []string{"supervisor@example.com"},
		Managers:    []string{"manager@example.com", "director@example.com"},
	}
}

func newTestEscalator(base time.Duration) (*Escalator, *history.MemoryEscalationHistory, *recordingDispatcher) {
	hist := history.NewMemoryEscalationHistory()
	d := &recordingDispatcher{}
	return New(hist, d, testConfig(base)), hist, d
}

func levels(t *testing.T, hist *history.MemoryEscalationHistory, id string) []int {
	t.Helper()
	recs, err := hist.Query(context.Background(), id)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Level
	}
	return out
}

// waitForRecords polls until the escalation history for id holds want
// records, failing the test after two seconds.
func waitForRecords(t *testing.T, hist *history.MemoryEscalationHistory, id string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(levels(t, hist, id)) >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d escalation records, have %v", want, levels(t, hist, id))
}

func TestStart_NonCriticalIsNoOp(t *testing.T) {
	e, hist, _ := newTestEscalator(time.Hour)
	defer e.Stop()

	err := e.Start(context.Background(), "n1", "toner", []string{"ops@example.com"}, alert.SeverityHigh, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := levels(t, hist, "n1"); len(got) != 0 {
		t.Errorf("records after non-critical Start: got %v, want none", got)
	}
	if e.Pending() != 0 {
		t.Error("Pending: non-critical Start must not arm a timer")
	}
}

func TestStart_CriticalRecordsLevelOne(t *testing.T) {
	e, hist, _ := newTestEscalator(time.Hour)
	defer e.Stop()

	err := e.Start(context.Background(), "n1", "printer offline", []string{"ops@example.com"}, alert.SeverityCritical, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	recs, _ := hist.Query(context.Background(), "n1")
	if len(recs) != 1 {
		t.Fatalf("records: got %d, want 1", len(recs))
	}
	if recs[0].Level != 1 {
		t.Errorf("level: got %d, want 1", recs[0].Level)
	}
	if recs[0].Reason != "Initial notification sent" {
		t.Errorf("reason: got %q", recs[0].Reason)
	}
	if e.Pending() != 1 {
		t.Error("Pending: critical Start must arm exactly one timer")
	}
}

func TestCheck_UnacknowledgedEscalatesThroughAllTiers(t *testing.T) {
	e, hist, d := newTestEscalator(5 * time.Millisecond)
	defer e.Stop()

	e.Start(context.Background(), "n1", "printer offline", []string{"ops@example.com"}, alert.SeverityCritical, nil)

	waitForRecords(t, hist, "n1", 3)

	// Give any stray timer a chance to misfire, then confirm the chain is done.
	time.Sleep(50 * time.Millisecond)
	got := levels(t, hist, "n1")
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("levels: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("levels: got %v, want monotonic %v", got, want)
		}
	}
	if e.Pending() != 0 {
		t.Error("Pending: got a live timer after max escalation")
	}
	if d.count() != 2 {
		t.Errorf("escalation dispatches: got %d, want 2", d.count())
	}
}

func TestCheck_ReasonAndRecipientsPerTier(t *testing.T) {
	e, hist, d := newTestEscalator(15 * time.Minute)
	defer e.Stop()

	ctx := context.Background()
	e.history.Append(ctx, alert.EscalationRecord{NotificationID: "n1", Level: 1})

	// Drive the checks directly instead of waiting out the timers.
	e.check("n1", "printer offline", []string{"ops@example.com"}, map[string]string{"printer_id": "p1"}, 1)
	e.Stop() // drop the level-2 timer; next check is driven manually too
	e.check("n1", "printer offline", []string{"ops@example.com"}, map[string]string{"printer_id": "p1"}, 2)

	recs, _ := hist.Query(ctx, "n1")
	if len(recs) != 3 {
		t.Fatalf("records: got %d, want 3", len(recs))
	}

	l2, l3 := recs[1], recs[2]
	if l2.Reason != "No response after 15 minutes - escalating to supervisors" {
		t.Errorf("level-2 reason: got %q", l2.Reason)
	}
	if l3.Reason != "No response after 30 minutes - escalating to managers and directors" {
		t.Errorf("level-3 reason: got %q", l3.Reason)
	}
	if len(l2.EscalatedRecipients) != 1 || l2.EscalatedRecipients[0] != "supervisor@example.com" {
		t.Errorf("level-2 recipients: got %v", l2.EscalatedRecipients)
	}
	if len(l3.EscalatedRecipients) != 2 {
		t.Errorf("level-3 recipients: got %v", l3.EscalatedRecipients)
	}
	if l2.ResponseTimeMinutes != 30 || l3.ResponseTimeMinutes != 45 {
		t.Errorf("response minutes: got (%d, %d), want (30, 45)",
			l2.ResponseTimeMinutes, l3.ResponseTimeMinutes)
	}

	// Escalation notices go out email-only with the original referenced.
	for _, req := range d.requests {
		if len(req.Channels) != 1 || req.Channels[0] != alert.ChannelEmail {
			t.Errorf("notice channels: got %v, want [email]", req.Channels)
		}
		if req.Metadata["original_notification_id"] != "n1" {
			t.Errorf("notice metadata: got %v, want original_notification_id=n1", req.Metadata)
		}
	}
}

func TestAcknowledge_HaltsEscalation(t *testing.T) {
	e, hist, d := newTestEscalator(time.Hour)
	defer e.Stop()

	ctx := context.Background()
	e.Start(ctx, "n1", "printer offline", []string{"ops@example.com"}, alert.SeverityCritical, nil)

	if !e.Acknowledge(ctx, "n1", "u1", "on it") {
		t.Fatal("Acknowledge: got false, want true")
	}
	if e.Pending() != 0 {
		t.Error("Pending: acknowledgment must cancel the armed check")
	}

	// Even if a check were already in flight, the re-read must stop it.
	e.check("n1", "printer offline", []string{"ops@example.com"}, nil, 1)

	if got := levels(t, hist, "n1"); len(got) != 1 {
		t.Errorf("levels after ack: got %v, want only the initial record", got)
	}
	if d.count() != 0 {
		t.Errorf("dispatches after ack: got %d, want 0", d.count())
	}
}

func TestAcknowledge_Idempotent(t *testing.T) {
	e, _, _ := newTestEscalator(time.Hour)
	defer e.Stop()

	ctx := context.Background()
	e.Start(ctx, "n1", "t", []string{"ops@example.com"}, alert.SeverityCritical, nil)

	if !e.Acknowledge(ctx, "n1", "u1", "") {
		t.Fatal("first Acknowledge: got false")
	}
	if e.Acknowledge(ctx, "n1", "u2", "") {
		t.Error("second Acknowledge: got true, want false")
	}
	if e.Acknowledge(ctx, "unknown", "u1", "") {
		t.Error("Acknowledge of unknown id: got true, want false")
	}
}

func TestEscalate_StepFailureKeepsSchedule(t *testing.T) {
	e, hist, d := newTestEscalator(5 * time.Millisecond)
	defer e.Stop()
	d.fail = true

	e.Start(context.Background(), "n1", "printer offline", []string{"ops@example.com"}, alert.SeverityCritical, nil)

	waitForRecords(t, hist, "n1", 3)

	recs, _ := hist.Query(context.Background(), "n1")
	if recs[1].Successful || recs[2].Successful {
		t.Error("escalation records: failed dispatches must be recorded with Successful=false")
	}
	if got := levels(t, hist, "n1"); len(got) != 3 {
		t.Errorf("levels: got %v, want the chain to continue past a failed step", got)
	}
}

func TestSetTiers_AppliesToNextCheck(t *testing.T) {
	e, hist, _ := newTestEscalator(time.Hour)
	defer e.Stop()

	ctx := context.Background()
	e.history.Append(ctx, alert.EscalationRecord{NotificationID: "n1", Level: 1})

	e.SetTiers([]string{"shift-lead@example.com"}, []string{"site-manager@example.com"})
	e.check("n1", "printer offline", []string{"ops@example.com"}, nil, 1)

	recs, _ := hist.Query(ctx, "n1")
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}
	got := recs[1].EscalatedRecipients
	if len(got) != 1 || got[0] != "shift-lead@example.com" {
		t.Errorf("level-2 recipients: got %v, want reloaded supervisor list", got)
	}
}

func TestStop_CancelsTimers(t *testing.T) {
	e, _, _ := newTestEscalator(time.Hour)

	e.Start(context.Background(), "n1", "t", []string{"ops@example.com"}, alert.SeverityCritical, nil)
	e.Start(context.Background(), "n2", "t", []string{"ops@example.com"}, alert.SeverityCritical, nil)

	e.Stop()
	if e.Pending() != 0 {
		t.Errorf("Pending after Stop: got %d, want 0", e.Pending())
	}
}
