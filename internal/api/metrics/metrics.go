// Package metrics defines and registers all custom Prometheus metrics for the
// personar profile service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "personar"

// ── Account metrics ───────────────────────────────────────────────────────────

// SignupsTotal counts completed enrollments.
// Label:
//   - method: "password" or "external"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of users enrolled, by signup method.",
	},
	[]string{"method"},
)

// LoginsTotal counts login attempts.
// Labels:
//   - method: "password" or "external"
//   - result: "ok" or "rejected"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// ProfileCacheTotal counts handle lookups served from (hit) or past (miss) the cache.
var ProfileCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_total",
		Help:      "Total number of profile cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ── Vector metrics ────────────────────────────────────────────────────────────

// VectorLookupsTotal counts find-by-vector requests.
// Label:
//   - result: "match", "no_match", "invalid" or "error"
var VectorLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vector_lookups_total",
		Help:      "Total number of vector lookups, by result.",
	},
	[]string{"result"},
)

// VectorQueryDuration measures the nearest-neighbour query against the index.
var VectorQueryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "vector_query_duration_seconds",
		Help:      "Duration of nearest-neighbour queries against the vector index.",
		Buckets:   prometheus.DefBuckets,
	},
)

// IndexedVectors tracks the live vectors held by the in-memory index.
var IndexedVectors = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indexed_vectors",
		Help:      "Current number of live vectors in the in-memory index.",
	},
)

// ── Enrollment queue metrics ──────────────────────────────────────────────────

// EnrollmentErrorsTotal counts failed index registrations.
// Label:
//   - stage: "register" (request path), "retry" (worker) or "lookup" (worker could not load the user)
var EnrollmentErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollment_errors_total",
		Help:      "Total number of failed embedding registrations, by stage.",
	},
	[]string{"stage"},
)

// EnrollmentQueueDepth tracks pending retries per worker channel.
var EnrollmentQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enrollment_queue_depth",
		Help:      "Current number of enrollment retries pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// EnrollmentDroppedTotal counts retries discarded because the worker channel was full.
var EnrollmentDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollment_dropped_total",
		Help:      "Total number of enrollment retries dropped on a full queue.",
	},
)
