// Package escalate implements the timed, tiered escalation state machine
// for critical notifications: unacknowledged alerts are re-dispatched to a
// widening recipient set (supervisors, then managers and directors) until
// someone acknowledges or the maximum tier is reached.
package escalate
