// Package detect polls printer exporters, evaluates threshold rules against
// their metrics, and runs firing conditions through the alerting pipeline
// (deduplication, dispatch, escalation tracking).
package detect
