package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	reconcilesTotal   prometheus.Counter
	reconcileDuration prometheus.Histogram
	jobsProcessed     *prometheus.CounterVec
	jobsSubmitted     prometheus.Counter
	jobTransitions    *prometheus.CounterVec
	pushDeliveries    *prometheus.CounterVec
}

// NewPrometheusSink creates and registers the pipeline metrics.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		reconcilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kanpai_reconcile_passes_total",
			Help: "Total number of reconcile passes started.",
		}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kanpai_reconcile_duration_seconds",
			Help:    "Duration of each reconcile pass in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kanpai_reconcile_jobs_total",
			Help: "Jobs handled by reconcile passes, partitioned by outcome.",
		}, []string{"outcome"}),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kanpai_jobs_submitted_total",
			Help: "Total recommendation jobs submitted to the inference service.",
		}),
		jobTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kanpai_job_transitions_total",
			Help: "Job status transitions applied, partitioned by target status.",
		}, []string{"status"}),
		pushDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kanpai_push_deliveries_total",
			Help: "LINE push delivery attempts, partitioned by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		s.reconcilesTotal, s.reconcileDuration, s.jobsProcessed,
		s.jobsSubmitted, s.jobTransitions, s.pushDeliveries,
	} {
		if err := reg.Register(c); err != nil {
			slog.Warn("metrics registration failed", "error", err)
		}
	}
	return s
}

func (s *PrometheusSink) ReconcileStarted() {
	s.reconcilesTotal.Inc()
}

func (s *PrometheusSink) ReconcileCompleted(d time.Duration, processed, completed, failed int) {
	s.reconcileDuration.Observe(d.Seconds())
	s.jobsProcessed.WithLabelValues("completed").Add(float64(completed))
	s.jobsProcessed.WithLabelValues("failed").Add(float64(failed))
	if inflight := processed - completed - failed; inflight > 0 {
		s.jobsProcessed.WithLabelValues("in_flight").Add(float64(inflight))
	}
}

func (s *PrometheusSink) JobSubmitted() {
	s.jobsSubmitted.Inc()
}

func (s *PrometheusSink) JobTransition(status string) {
	s.jobTransitions.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) PushDelivery(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	s.pushDeliveries.WithLabelValues(result).Inc()
}

var _ Sink = (*PrometheusSink)(nil)
