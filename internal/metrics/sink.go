// Package metrics records pipeline telemetry behind a small sink interface.
package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or
// propagate errors.
type Sink interface {
	// Reconciler metrics
	ReconcileStarted()
	ReconcileCompleted(duration time.Duration, processed, completed, failed int)

	// Job lifecycle metrics
	JobSubmitted()
	JobTransition(status string)

	// Notification metrics
	PushDelivery(success bool)
}
