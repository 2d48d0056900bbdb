// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catering"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_total",
		Help:      "Booking lifecycle operations by action and outcome.",
	}, []string{"action", "outcome"})

	SettledAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settled_amount_total",
		Help:      "Money collected by completed bookings.",
	})

	QueueTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_tasks_total",
		Help:      "Background tasks processed by type and outcome.",
	}, []string{"type", "outcome"})

	AwaitingSettlement = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bookings_awaiting_settlement",
		Help:      "Confirmed bookings whose event day has passed without completion.",
	})
)

// Outcome labels a finished operation for the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
