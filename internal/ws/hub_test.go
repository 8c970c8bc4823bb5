package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/history"
	wsHub "github.com/printwatch/printwatch/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore(t *testing.T, alerts ...alert.Alert) *history.MemoryAlertHistory {
	t.Helper()
	st := history.NewMemoryAlertHistory(48 * time.Hour)
	for _, a := range alerts {
		if err := st.Save(context.Background(), a); err != nil {
			t.Fatalf("seed alert: %v", err)
		}
	}
	return st
}

func mkAlert(id string) alert.Alert {
	return alert.Alert{
		ID:            id,
		PrinterID:     "p1",
		ConditionType: "toner_low",
		Severity:      alert.SeverityHigh,
		CreatedAt:     time.Now().Add(-time.Minute),
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, st *history.MemoryAlertHistory) (wsURL string, hub *wsHub.Hub) {
	t.Helper()

	hub = wsHub.New(st, testInterval)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateAlerts(t *testing.T) {
	wsURL, _ := startHub(t, newStore(t, mkAlert("a1")))

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m wsHub.Message
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Event != "alerts" {
		t.Errorf("event: got %q, want alerts", m.Event)
	}
	if len(m.Alerts) != 1 || m.Alerts[0].ID != "a1" {
		t.Errorf("alerts: got %+v, want [a1]", m.Alerts)
	}
	if m.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
}

func TestHub_EmptyStore_EmptyAlerts(t *testing.T) {
	wsURL, _ := startHub(t, newStore(t))
	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m wsHub.Message
	json.Unmarshal(msg, &m) //nolint:errcheck
	if m.Alerts == nil || len(m.Alerts) != 0 {
		t.Errorf("alerts: got %v, want empty array", m.Alerts)
	}
}

func TestHub_CountTracksClients(t *testing.T) {
	wsURL, hub := startHub(t, newStore(t))

	conn := dial(t, wsURL)
	readMessage(t, conn) // ensure the connection is registered

	if hub.Count() != 1 {
		t.Errorf("Count: got %d, want 1", hub.Count())
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Errorf("Count after close: got %d, want 0", hub.Count())
	}
}
