package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/audit"
	"github.com/printwatch/printwatch/internal/channel"
)

// Engine fans one notification request out across its channels and
// aggregates the per-channel responses.
//
// Engine is safe for concurrent use.
type Engine struct {
	adapters map[alert.Channel]channel.Adapter
	audit    audit.Sink
}

// New creates an Engine over the given adapters. Channel selection happens
// through this table; an unregistered channel in a request yields a failed
// response for that channel only.
func New(adapters []channel.Adapter, sink audit.Sink) *Engine {
	m := make(map[alert.Channel]channel.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Engine{adapters: m, audit: sink}
}

// Dispatch delivers req on every channel it names, one goroutine per
// channel, and returns exactly one response per channel in request order.
// A failing channel never cancels or delays its siblings; the caller
// decides what overall success means.
func (e *Engine) Dispatch(ctx context.Context, req *alert.NotificationRequest) []alert.NotificationResponse {
	responses := make([]alert.NotificationResponse, len(req.Channels))

	var wg sync.WaitGroup
	for i, ch := range req.Channels {
		wg.Add(1)
		go func(i int, ch alert.Channel) {
			defer wg.Done()
			responses[i] = e.sendOne(ctx, req, ch)
		}(i, ch)
	}
	wg.Wait()

	for _, resp := range responses {
		e.auditAttempt(req, resp)
	}
	return responses
}

// sendOne delivers req on a single channel through its adapter.
func (e *Engine) sendOne(ctx context.Context, req *alert.NotificationRequest, ch alert.Channel) alert.NotificationResponse {
	adapter, ok := e.adapters[ch]
	if !ok {
		return alert.NotificationResponse{
			NotificationID: req.ID,
			Channel:        ch,
			SentAt:         time.Now(),
			Success:        false,
			ErrorMessage:   fmt.Sprintf("no adapter registered for channel %q", ch),
		}
	}

	resp := adapter.Send(ctx, req)
	if resp.Success {
		slog.Debug("dispatch: channel delivered",
			"notification", req.ID, "channel", ch, "recipients", resp.RecipientCount)
	} else {
		slog.Warn("dispatch: channel delivery failed",
			"notification", req.ID, "channel", ch, "err", resp.ErrorMessage)
	}
	return resp
}

// auditAttempt emits one audit event for a channel attempt. Audit failures
// never fail the dispatch.
func (e *Engine) auditAttempt(req *alert.NotificationRequest, resp alert.NotificationResponse) {
	if e.audit == nil {
		return
	}
	e.audit.LogEvent(audit.Event{
		Type:        "notification_dispatch",
		Title:       req.Title,
		Description: resp.ErrorMessage,
		Severity:    req.Severity,
		Success:     resp.Success,
		Data: map[string]string{
			"notification_id": req.ID,
			"channel":         string(resp.Channel),
			"recipients":      strings.Join(req.Recipients, ","),
		},
	})
}
