// Package alert holds the core alerting domain model (conditions, alerts,
// notification requests and responses, escalation records) plus the alert
// factory and the time-window deduplicator.
package alert
