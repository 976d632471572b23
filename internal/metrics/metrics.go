package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement metrics, registered on the default registry and exposed via
// promhttp on /metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qbooking_http_request_duration_seconds",
		Help:    "HTTP request latency by method, path and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qbooking_payments_processed_total",
		Help: "Inbound payment webhook outcomes.",
	}, []string{"result"})

	RefundsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qbooking_refunds_processed_total",
		Help: "Refund processing outcomes.",
	}, []string{"result"})

	PayoutTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qbooking_payout_transitions_total",
		Help: "Payout state machine transitions.",
	}, []string{"to"})

	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qbooking_notifications_delivery_total",
		Help: "Notification delivery attempts by outcome.",
	}, []string{"outcome"})

	NotificationsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qbooking_notifications_enqueued_total",
		Help: "Notifications persisted into the delivery queue.",
	})
)
