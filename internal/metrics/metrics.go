// Package metrics exposes Prometheus counters for the notification pipeline.
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "earn_bot"

// Delivery outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Scheduling skip reasons.
const (
	SkipPending   = "pending"
	SkipSent      = "sent"
	SkipDuplicate = "duplicate"
)

// Metrics groups every collector the pipeline updates.
type Metrics struct {
	registry *prometheus.Registry

	ChangesDetected *prometheus.CounterVec
	Scheduled       *prometheus.CounterVec
	Skipped         *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	Purged          prometheus.Counter
	JobFailures     *prometheus.CounterVec
	LastCycle       prometheus.Gauge
}

// New registers all collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ChangesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_detected_total",
			Help:      "Listing change events produced by the detector.",
		}, []string{"change_type"}),
		Scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_scheduled_total",
			Help:      "Pending notifications created.",
		}, []string{"change_type"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_skipped_total",
			Help:      "Scheduling requests skipped because an equivalent notification exists.",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by outcome.",
		}, []string{"outcome"}),
		Purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_purged_total",
			Help:      "Sent notifications removed by the retention sweep.",
		}),
		JobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failures_total",
			Help:      "Periodic job runs that returned an error or panicked.",
		}, []string{"job"}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_detection_cycle_timestamp_seconds",
			Help:      "Unix time of the last detection cycle that replaced the snapshot.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ChangesDetected, m.Scheduled, m.Skipped, m.Deliveries,
		m.Purged, m.JobFailures, m.LastCycle,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ChangeDetected counts one change event.
func (m *Metrics) ChangeDetected(changeType string) {
	if m == nil {
		return
	}
	m.ChangesDetected.WithLabelValues(changeType).Inc()
}

// NotificationScheduled counts one created pending notification.
func (m *Metrics) NotificationScheduled(changeType string) {
	if m == nil {
		return
	}
	m.Scheduled.WithLabelValues(changeType).Inc()
}

// NotificationSkipped counts one skipped scheduling request.
func (m *Metrics) NotificationSkipped(reason string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(reason).Inc()
}

// Delivery counts one processed due notification.
func (m *Metrics) Delivery(outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
}

// NotificationsPurged adds n to the purge counter.
func (m *Metrics) NotificationsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.Purged.Add(float64(n))
}

// JobFailed counts a failed periodic job run.
func (m *Metrics) JobFailed(job string) {
	if m == nil {
		return
	}
	m.JobFailures.WithLabelValues(job).Inc()
}

// CycleCompleted records the time of a successful detection cycle.
func (m *Metrics) CycleCompleted(t time.Time) {
	if m == nil {
		return
	}
	m.LastCycle.Set(float64(t.Unix()))
}
