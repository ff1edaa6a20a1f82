package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics records metadata for the session expiry sweeper.
type SweepMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	cancelled prometheus.Counter
}

// NewSweepMetrics registers sweeper metrics on the provided registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of sweep jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_success",
		Help: "Successful sweep job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_failure",
		Help: "Failed sweep job executions.",
	}, []string{"job"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_sessions_cancelled_total",
		Help: "Checkout sessions cancelled because their expiry passed.",
	})
	reg.MustRegister(duration, success, failure, cancelled)
	return &SweepMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		cancelled: cancelled,
	}
}

// ObserveDuration records the duration for the named job.
func (s *SweepMetrics) ObserveDuration(job string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (s *SweepMetrics) IncSuccess(job string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (s *SweepMetrics) IncFailure(job string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddCancelled counts sessions the sweeper moved to cancelled.
func (s *SweepMetrics) AddCancelled(n int) {
	if s == nil || s.cancelled == nil || n <= 0 {
		return
	}
	s.cancelled.Add(float64(n))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
