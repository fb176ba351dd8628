package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records outcomes of queued delivery jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	claimed  *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notifyd_job_duration_seconds",
		Help:    "Duration of delivery jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"lane", "kind"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_job_success_total",
		Help: "Successful delivery job executions.",
	}, []string{"lane", "kind"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_job_failure_total",
		Help: "Failed delivery job executions.",
	}, []string{"lane", "kind"})
	claimed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_job_claimed_total",
		Help: "Jobs claimed from a lane.",
	}, []string{"lane"})
	reg.MustRegister(duration, success, failure, claimed)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		claimed:  claimed,
	}
}

// ObserveDuration records how long one job took.
func (m *JobMetrics) ObserveDuration(lane, kind string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(lane), normalizeLabel(kind)).Observe(duration.Seconds())
}

func (m *JobMetrics) IncSuccess(lane, kind string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(lane), normalizeLabel(kind)).Inc()
}

func (m *JobMetrics) IncFailure(lane, kind string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(lane), normalizeLabel(kind)).Inc()
}

// AddClaimed counts jobs taken off a lane in one poll.
func (m *JobMetrics) AddClaimed(lane string, n int) {
	if m == nil || m.claimed == nil || n <= 0 {
		return
	}
	m.claimed.WithLabelValues(normalizeLabel(lane)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
