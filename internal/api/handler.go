package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/history"
)

// recentWindow bounds how far back GET /api/v1/alerts and the health
// summary look.
const recentWindow = 24 * time.Hour

// Acknowledger records acknowledgments and halts pending escalation.
// Satisfied by escalate.Escalator.
type Acknowledger interface {
	Acknowledge(ctx context.Context, notificationID, userID, comment string) bool
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	alerts      history.AlertHistory
	escalations history.EscalationHistory
	ack         Acknowledger
	mux         *http.ServeMux
}

// New creates a Handler wired to the given stores and registers all routes.
func New(alerts history.AlertHistory, esc history.EscalationHistory, ack Acknowledger) http.Handler {
	h := &Handler{alerts: alerts, escalations: esc, ack: ack, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/escalations/", h.getEscalations) // subtree; extracts {id}
	h.mux.HandleFunc("/api/v1/acknowledgments", h.acknowledge)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: alert counts by severity over the
// recent window.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	recent, err := h.alerts.Recent(r.Context(), recentWindow)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "alert history unavailable")
		return
	}

	resp := HealthResponse{AlertCount: len(recent)}
	for _, a := range recent {
		switch a.Severity {
		case alert.SeverityCritical:
			resp.CriticalCount++
		case alert.SeverityHigh:
			resp.HighCount++
		case alert.SeverityMedium:
			resp.MediumCount++
		default:
			resp.LowCount++
		}
	}
	switch {
	case resp.CriticalCount > 0:
		resp.State = "critical"
	case resp.HighCount > 0 || resp.MediumCount > 0:
		resp.State = "degraded"
	default:
		resp.State = "healthy"
	}
	jsonResp(w, http.StatusOK, resp)
}

// listAlerts returns GET /api/v1/alerts: recent alerts, newest first.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	recent, err := h.alerts.Recent(r.Context(), recentWindow)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "alert history unavailable")
		return
	}
	if recent == nil {
		recent = []alert.Alert{}
	}
	jsonResp(w, http.StatusOK, AlertsResponse{
		Alerts:      recent,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// getEscalations returns GET /api/v1/escalations/{notification_id}: the
// full escalation history for one notification.
func (h *Handler) getEscalations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/escalations/")
	if id == "" || strings.Contains(id, "/") {
		jsonErr(w, http.StatusBadRequest, "notification id required")
		return
	}

	records, err := h.escalations.Query(r.Context(), id)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "escalation history unavailable")
		return
	}
	if len(records) == 0 {
		jsonErr(w, http.StatusNotFound, "no escalation history for notification")
		return
	}

	acked, err := h.escalations.IsAcknowledged(r.Context(), id)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "escalation history unavailable")
		return
	}

	jsonResp(w, http.StatusOK, EscalationsResponse{
		NotificationID: id,
		Acknowledged:   acked,
		Records:        records,
	})
}

// acknowledge handles POST /api/v1/acknowledgments: records a user
// acknowledgment and halts any pending escalation check.
func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.NotificationID == "" || req.UserID == "" {
		jsonErr(w, http.StatusBadRequest, "notification_id and user_id are required")
		return
	}

	ok := h.ack.Acknowledge(r.Context(), req.NotificationID, req.UserID, req.Comment)
	jsonResp(w, http.StatusOK, AcknowledgeResponse{
		NotificationID: req.NotificationID,
		Acknowledged:   ok,
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
