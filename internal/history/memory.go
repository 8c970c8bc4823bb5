package history

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/printwatch/printwatch/internal/alert"
)

// MemoryAlertHistory is a thread-safe in-memory AlertHistory, keyed by
// (printer, condition type). A background goroutine (Run) periodically
// evicts alerts older than the configured TTL.
//
// It is the source of truth for deduplication within one process; a real
// deployment would back it with a database behind the same interface.
type MemoryAlertHistory struct {
	mu   sync.RWMutex
	data map[string][]alert.Alert // key: printerID + "\x00" + conditionType
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// NewMemoryAlertHistory creates a store that retains alerts for ttl.
func NewMemoryAlertHistory(ttl time.Duration) *MemoryAlertHistory {
	return &MemoryAlertHistory{
		data: make(map[string][]alert.Alert),
		ttl:  ttl,
		now:  time.Now,
	}
}

func key(printerID, conditionType string) string {
	return printerID + "\x00" + conditionType
}

// Save appends a to the store.
func (s *MemoryAlertHistory) Save(_ context.Context, a alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(a.PrinterID, a.ConditionType)
	s.data[k] = append(s.data[k], a)
	return nil
}

// GetRecent returns alerts for (printerID, conditionType) created within
// the window, newest first.
func (s *MemoryAlertHistory) GetRecent(_ context.Context, printerID, conditionType string, window time.Duration) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)
	stored := s.data[key(printerID, conditionType)]
	out := make([]alert.Alert, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		if stored[i].CreatedAt.After(cutoff) {
			out = append(out, stored[i])
		}
	}
	return out, nil
}

// Recent returns all alerts created within the window, newest first.
func (s *MemoryAlertHistory) Recent(_ context.Context, window time.Duration) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)
	var out []alert.Alert
	for _, stored := range s.data {
		for _, a := range stored {
			if a.CreatedAt.After(cutoff) {
				out = append(out, a)
			}
		}
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the total number of alerts currently held, including stale ones.
func (s *MemoryAlertHistory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, stored := range s.data {
		n += len(stored)
	}
	return n
}

// Evict removes alerts created before now minus TTL. It returns the number
// of alerts removed.
func (s *MemoryAlertHistory) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.ttl)
	removed := 0
	for k, stored := range s.data {
		kept := stored[:0]
		for _, a := range stored {
			if a.CreatedAt.After(cutoff) {
				kept = append(kept, a)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.data, k)
		} else {
			s.data[k] = kept
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second). Run blocks until ctx is cancelled.
func (s *MemoryAlertHistory) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("history: evicted expired alerts", "count", n)
			}
		}
	}
}

// MemoryEscalationHistory is a thread-safe in-memory EscalationHistory.
type MemoryEscalationHistory struct {
	mu      sync.RWMutex
	records map[string][]alert.EscalationRecord
	acks    map[string]alert.AcknowledgmentEvent
	now     func() time.Time
}

// NewMemoryEscalationHistory creates an empty escalation store.
func NewMemoryEscalationHistory() *MemoryEscalationHistory {
	return &MemoryEscalationHistory{
		records: make(map[string][]alert.EscalationRecord),
		acks:    make(map[string]alert.AcknowledgmentEvent),
		now:     time.Now,
	}
}

// Append adds rec to the history for its notification ID.
func (s *MemoryEscalationHistory) Append(_ context.Context, rec alert.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.NotificationID] = append(s.records[rec.NotificationID], rec)
	return nil
}

// Query returns copies of all records for notificationID in append order.
func (s *MemoryEscalationHistory) Query(_ context.Context, notificationID string) ([]alert.EscalationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.records[notificationID]
	out := make([]alert.EscalationRecord, len(stored))
	copy(out, stored)
	return out, nil
}

// IsAcknowledged reports whether an acknowledgment exists for notificationID.
func (s *MemoryEscalationHistory) IsAcknowledged(_ context.Context, notificationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.acks[notificationID]
	return ok, nil
}

// Acknowledge records ev once per notification ID. It returns false when
// the ID has no escalation history (unknown) or is already acknowledged.
func (s *MemoryEscalationHistory) Acknowledge(_ context.Context, ev alert.AcknowledgmentEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.records[ev.NotificationID]; !known {
		return false
	}
	if _, done := s.acks[ev.NotificationID]; done {
		return false
	}
	if ev.AcknowledgedAt.IsZero() {
		ev.AcknowledgedAt = s.now()
	}
	s.acks[ev.NotificationID] = ev
	return true
}
