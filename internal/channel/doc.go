// Package channel implements the delivery adapters: email over SMTP, Slack
// and Teams webhooks, and an HTTP SMS gateway. Every adapter reports its
// outcome in a NotificationResponse and never raises an error that could
// abort sibling channels. The HTTP-backed adapters sit behind a circuit
// breaker so a dead webhook stops burning timeouts after a few failures.
package channel
