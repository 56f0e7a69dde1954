package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rental_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_booking_conflicts_total",
		Help: "Total number of booking requests rejected for overlapping dates",
	})

	PaymentsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_payments_applied_total",
		Help: "Total number of payments applied to bookings",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_booking_status_transitions_total",
		Help: "Booking status changes by source and target status",
	}, []string{"from", "to"})

	ContractDrafts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_contract_drafts_total",
		Help: "Contract term generation attempts by result",
	}, []string{"result"})

	TransactionsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_transactions_settled_total",
		Help: "Settled transactions by terminal status",
	}, []string{"status"})

	SettlementQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rental_settlement_queue_depth",
		Help: "Transactions waiting for settlement",
	})
)
