// Package audit defines the fire-and-forget audit event sink used by the
// dispatch engine to record every channel delivery attempt.
package audit
