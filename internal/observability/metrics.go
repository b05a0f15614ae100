package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SeatDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatwise_seat_decisions_total",
			Help: "Per-seat outcomes of engine operations",
		},
		[]string{"operation", "outcome"},
	)

	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seatwise_resolve_seconds",
			Help:    "Duration of availability resolution",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seatwise_store_write_seconds",
			Help:    "Duration of conditional store writes",
			Buckets: prometheus.DefBuckets,
		},
	)

	CompactedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatwise_compacted_rows_total",
			Help: "Expired reservation rows removed by the compactor",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seatwise_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatwise_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
