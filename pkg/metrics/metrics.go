// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consultation_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultation_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ThreadsCreatedTotal tracks created inquiries and consultations.
	ThreadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threads_created_total",
			Help: "Total support threads created",
		},
		[]string{"kind"},
	)

	// RepliesTotal tracks stored replies by author role.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thread_replies_total",
			Help: "Total replies appended to support threads",
		},
		[]string{"kind", "role"},
	)

	// GateTransitionsTotal tracks conversation gate changes, e.g. open->closed.
	GateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thread_gate_transitions_total",
			Help: "Conversation gate transitions caused by replies",
		},
		[]string{"kind", "transition"},
	)

	// RepliesRejectedTotal tracks replies refused by validation or the gate.
	RepliesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thread_replies_rejected_total",
			Help: "Replies rejected before being stored",
		},
		[]string{"kind", "role", "reason"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordReply records a stored reply and the gate transition it caused.
func RecordReply(kind, role, transition string) {
	RepliesTotal.WithLabelValues(kind, role).Inc()
	GateTransitionsTotal.WithLabelValues(kind, transition).Inc()
}

// RecordRejectedReply records a reply that never reached storage.
func RecordRejectedReply(kind, role, reason string) {
	RepliesRejectedTotal.WithLabelValues(kind, role, reason).Inc()
}
