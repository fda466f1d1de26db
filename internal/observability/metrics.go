package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace is the prefix of every metric (e.g. petlife_api_...).
const namespace = "petlife"

// Label values shared by the status-labelled counters.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDropped = "dropped"
)

var (
	// -------------------------------------------------------------------------
	// API (HTTP)
	// -------------------------------------------------------------------------

	// APIReqDuration measures the latency of HTTP requests.
	// Metric: petlife_api_http_handling_seconds
	APIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// APIReqTotal counts HTTP requests by route pattern and status code.
	// Metric: petlife_api_http_requests_total
	APIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "code"})

	// --- Idempotency cache (Otter) ---

	IdempotencyHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "idempotency_hits_total",
		Help:      "Interactions answered from the idempotency cache",
	})

	IdempotencyMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "idempotency_misses_total",
		Help:      "Interactions with an idempotency key that had to be executed",
	})

	// IdempotencyItems is the S3-FIFO item count; otter does not track byte size.
	IdempotencyItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "idempotency_items_count",
		Help:      "Current number of remembered idempotent responses",
	})

	// -------------------------------------------------------------------------
	// LIFETIME (decay worker)
	// -------------------------------------------------------------------------

	// LifetimeTickDuration measures a full pass over every stored pet.
	// Metric: petlife_lifetime_tick_duration_seconds
	LifetimeTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "lifetime",
		Name:      "tick_duration_seconds",
		Help:      "Time taken to apply one decay tick to every pet",
		Buckets:   prometheus.DefBuckets,
	})

	LifetimePetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifetime",
		Name:      "pets_decayed_total",
		Help:      "Per-pet decay results",
	}, []string{"status"}) // success, failure

	LifetimeLastTick = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "lifetime",
		Name:      "last_tick_timestamp_seconds",
		Help:      "Unix time of the last completed decay tick",
	})

	// -------------------------------------------------------------------------
	// STORE
	// -------------------------------------------------------------------------

	StoredPets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "pets_count",
		Help:      "Number of pets seen by the last decay tick",
	})

	// -------------------------------------------------------------------------
	// EVENTS (Redis Pub/Sub)
	// -------------------------------------------------------------------------

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events handed to the bus",
	}, []string{"type", "status"}) // success, failure, dropped
)
