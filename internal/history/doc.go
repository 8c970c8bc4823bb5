// Package history defines the repository contracts for alert and escalation
// persistence, plus thread-safe in-memory implementations with TTL eviction.
// The interfaces are the seam where a database-backed store would plug in.
package history
