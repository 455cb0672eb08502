// Package metrics declares the Prometheus collectors of the booking
// service.  Collectors register with the default registry on package
// load and are served by the /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store mutations by operation and outcome ("ok" or the error kind).
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_store_mutations_total",
			Help: "Store mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Prices charged for successful bookings, by tier.
	ReservationPrice = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_reservation_price",
			Help:    "Reservation price charged per booking",
			Buckets: []float64{0, 1000, 2500, 5000, 7500, 10000, 25000, 50000, 100000},
		},
		[]string{"tier"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_recommend_duration_seconds",
			Help:    "Time spent computing recommendations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RecommendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_recommend_errors_total",
			Help: "Recommendation requests that failed",
		},
		[]string{"mode", "kind"},
	)

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_http_cache_hits_total",
		Help: "GET responses served from the Redis cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_http_cache_misses_total",
		Help: "GET responses that bypassed or missed the Redis cache",
	})

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_events_published_total",
			Help: "Activity events handed to the broker, by event type and result",
		},
		[]string{"type", "result"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_events_consumed_total",
			Help: "Activity events read back from the queue",
		},
		[]string{"type"},
	)
)

// RecordMutation counts one store mutation.  outcome is "ok" for
// success.
func RecordMutation(operation, outcome string) {
	Mutations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRecommend records how long a recommendation took.
func ObserveRecommend(mode string, started time.Time) {
	RecommendDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}
