package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PasteCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastabin_paste_created_total",
		Help: "no. of pastes created",
	})
	PasteRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastabin_paste_retrieved_total",
		Help: "no. of pastes retrieved",
	})
	PasteDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastabin_paste_deleted_total",
		Help: "no. of pastes deleted",
	})
	DeleteDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastabin_delete_denied_total",
		Help: "no. of deletes refused for a missing or wrong secret",
	})
	IDCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastabin_id_collisions_total",
		Help: "no. of generated ids that were already taken",
	})
	CreateExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastabin_create_exhausted_total",
		Help: "no. of creates that ran out of id retries",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pastabin_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
	CircuitOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pastabin_db_circuit_open",
		Help: "1 while the sqlite circuit breaker is open",
	})
)
