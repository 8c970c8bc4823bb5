// Package api implements the REST surface: health summary, recent alerts,
// per-notification escalation history, and the acknowledgment endpoint that
// halts escalation. Optional API key authentication wraps all routes.
package api
