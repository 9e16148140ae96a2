package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) ReconcileStarted()                                                        {}
func (n *NoopSink) ReconcileCompleted(d time.Duration, processed, completed, failed int)     {}
func (n *NoopSink) JobSubmitted()                                                            {}
func (n *NoopSink) JobTransition(status string)                                              {}
func (n *NoopSink) PushDelivery(success bool)                                                {}

var _ Sink = (*NoopSink)(nil)
