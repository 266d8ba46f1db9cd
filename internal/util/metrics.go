package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_recorded_total",
		Help: "Total number of orders recorded, by delivery mode",
	}, []string{"delivery_mode"})

	DuplicateReferencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_duplicate_references_total",
		Help: "Total number of payment callbacks for an already recorded reference",
	})

	DeliveriesUnrecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_deliveries_unrecorded_total",
		Help: "Total number of captured payments whose order could not be written",
	})

	OrdersFlaggedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_flagged_total",
		Help: "Total number of orders flagged for seller follow-up",
	}, []string{"reason"})

	DeliveryResolveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_delivery_resolve_latency_seconds",
		Help:    "Latency of delivery resolution",
		Buckets: prometheus.DefBuckets,
	})

	UnlockAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_unlock_attempts_total",
		Help: "Total number of view-only unlock attempts, by outcome",
	}, []string{"outcome"})

	PaymentVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_verifications_total",
		Help: "Total number of gateway payment verifications, by outcome",
	}, []string{"outcome"})

	ReceiptsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_receipts_sent_total",
		Help: "Total number of receipt emails sent",
	})

	ReceiptsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_receipts_failed_total",
		Help: "Total number of receipts that could not be dispatched or sent",
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
