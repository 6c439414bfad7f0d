package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reportify"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	issueTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issues",
			Name:      "transitions_total",
			Help:      "Accepted issue status transitions.",
		},
		[]string{"from", "to"},
	)

	issuesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issues",
			Name:      "created_total",
			Help:      "Issues created.",
		},
	)

	entitlementDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlements",
			Name:      "denials_total",
			Help:      "Issue creations refused by the entitlement guard.",
		},
		[]string{"reason"},
	)

	upvotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upvotes",
			Name:      "attempts_total",
			Help:      "Upvote attempts by result.",
		},
		[]string{"result"},
	)

	reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	reconcileRequired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consistency",
			Name:      "reconcile_required_total",
			Help:      "Secondary writes that failed after the primary write succeeded.",
		},
		[]string{"target"},
	)

	sweepRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "sweep_repairs_total",
			Help:      "Payment effects re-applied by the reconciliation sweep.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		issueTransitions,
		issuesCreated,
		entitlementDenials,
		upvotes,
		reconciliations,
		reconcileRequired,
		sweepRepairs,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latencies per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		c.Next()
		httpInFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition counts an accepted status change.
func RecordTransition(from, to string) {
	issueTransitions.WithLabelValues(from, to).Inc()
}

// RecordIssueCreated counts a stored issue.
func RecordIssueCreated() {
	issuesCreated.Inc()
}

// RecordEntitlementDenial counts a refused creation, reason is "blocked" or "quota".
func RecordEntitlementDenial(reason string) {
	entitlementDenials.WithLabelValues(reason).Inc()
}

// RecordUpvote counts an upvote attempt by result.
func RecordUpvote(result string) {
	upvotes.WithLabelValues(result).Inc()
}

// RecordReconciliation counts a payment reconciliation.
func RecordReconciliation(kind, outcome string) {
	reconciliations.WithLabelValues(kind, outcome).Inc()
}

// RecordReconcileRequired counts a secondary write left for repair.
func RecordReconcileRequired(target string) {
	reconcileRequired.WithLabelValues(target).Inc()
}

// RecordSweepRepair counts an effect re-applied by the sweeper.
func RecordSweepRepair(kind string) {
	sweepRepairs.WithLabelValues(kind).Inc()
}
