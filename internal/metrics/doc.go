// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Channel message and reconnection rates
//   - Dropped-event counts by reason
//   - Unread badge value and refresh outcomes
//   - Transcript archive throughput
package metrics
