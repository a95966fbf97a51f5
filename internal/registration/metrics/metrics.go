// Package metrics exposes Prometheus instrumentation for the registration
// workflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registration workflow collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requestsAdmitted      prometheus.Counter
	requestsApproved      prometheus.Counter
	requestsRejected      prometheus.Counter
	admitConflicts        *prometheus.CounterVec
	provisionFailures     *prometheus.CounterVec
	notificationFallbacks prometheus.Counter
	operationDuration     *prometheus.HistogramVec
}

// New creates and registers the workflow collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsAdmitted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "regdesk_requests_admitted_total",
			Help: "Registration requests accepted into the pending queue.",
		}),
		requestsApproved: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "regdesk_requests_approved_total",
			Help: "Registration requests approved and provisioned.",
		}),
		requestsRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "regdesk_requests_rejected_total",
			Help: "Registration requests rejected by a reviewer.",
		}),
		admitConflicts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_admit_conflicts_total",
			Help: "Admissions refused because of a conflicting username or email.",
		}, []string{"field"}),
		provisionFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_provision_failures_total",
			Help: "Directory provisioning failures by stage.",
		}, []string{"stage"}),
		notificationFallbacks: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "regdesk_notification_fallbacks_total",
			Help: "Notifications diverted to the fallback log after delivery failure.",
		}),
		operationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regdesk_operation_duration_seconds",
			Help:    "Duration of registration workflow operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) RequestAdmitted() {
	if m == nil {
		return
	}
	m.requestsAdmitted.Inc()
}

func (m *Metrics) RequestApproved() {
	if m == nil {
		return
	}
	m.requestsApproved.Inc()
}

func (m *Metrics) RequestRejected() {
	if m == nil {
		return
	}
	m.requestsRejected.Inc()
}

// AdmitConflict records a refused admission. field is "username" or "email".
func (m *Metrics) AdmitConflict(field string) {
	if m == nil {
		return
	}
	m.admitConflicts.WithLabelValues(field).Inc()
}

// ProvisionFailure records a directory failure. stage is "create" or
// "credential".
func (m *Metrics) ProvisionFailure(stage string) {
	if m == nil {
		return
	}
	m.provisionFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) NotificationFallback() {
	if m == nil {
		return
	}
	m.notificationFallbacks.Inc()
}

// ObserveDuration records how long an operation took.
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
