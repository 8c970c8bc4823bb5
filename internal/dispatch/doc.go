// Package dispatch implements the fan-out notification engine: one
// concurrent delivery attempt per channel, partial-failure isolation, and
// an audit event per attempt.
package dispatch
