// Package config loads and validates the printwatch YAML configuration:
// polled printers, alert rules, deduplication window, notification channels,
// and the escalation policy. Secrets (webhook URLs, SMTP passwords, gateway
// tokens) are referenced by environment variable name, never stored inline.
package config
