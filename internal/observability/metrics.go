// Package observability holds the service's Prometheus collectors.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Merge outcomes.
const (
	MergeCreated = "created"
	MergeUpdated = "updated"
	MergeInvalid = "invalid"
	MergeFailed  = "failed"
)

var (
	runningLogMerges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marathon_api",
		Subsystem: "running_log",
		Name:      "merges_total",
		Help:      "Running-log merge calls by outcome (created, updated, invalid, failed).",
	}, []string{"outcome"})

	mergedDays = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "marathon_api",
		Subsystem: "running_log",
		Name:      "merged_days",
		Help:      "Number of incoming daily records per successful merge.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 31},
	})

	lastMergeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "marathon_api",
		Subsystem: "running_log",
		Name:      "last_merge_timestamp_seconds",
		Help:      "Unix timestamp of the most recent persisted merge.",
	})

	statsRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marathon_api",
		Subsystem: "running_log",
		Name:      "stats_requests_total",
		Help:      "Stats aggregation calls by outcome (ok, not_found, invalid, failed).",
	}, []string{"outcome"})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marathon_api",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Events handed to Kafka, labeled by event type and result.",
	}, []string{"event_type", "result"})

	registrationCountErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marathon_api",
		Subsystem: "applications",
		Name:      "registration_count_errors_total",
		Help:      "Stored applications whose marathon registrationCount could not be incremented.",
	})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marathon_api",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP handler latency by method, route pattern and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(runningLogMerges, mergedDays, lastMergeGauge, statsRequests, eventsPublished, registrationCountErrors, httpDuration)
}

// RecordMerge counts a merge outcome; days is only observed for persisted merges.
func RecordMerge(outcome string, days int, at time.Time) {
	runningLogMerges.WithLabelValues(outcome).Inc()
	if outcome == MergeCreated || outcome == MergeUpdated {
		mergedDays.Observe(float64(days))
		lastMergeGauge.Set(float64(at.Unix()))
	}
}

// RecordStats counts a stats call outcome.
func RecordStats(outcome string) {
	statsRequests.WithLabelValues(outcome).Inc()
}

// RecordEventPublished counts an event delivery attempt.
func RecordEventPublished(eventType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	eventsPublished.WithLabelValues(eventType, result).Inc()
}

// RecordRegistrationCountError counts a failed registrationCount increment.
func RecordRegistrationCountError() {
	registrationCountErrors.Inc()
}

// RegistrationCountErrors exposes the increment failure counter; used by tests.
func RegistrationCountErrors() prometheus.Counter {
	return registrationCountErrors
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// MergeCount exposes the merge counter for one outcome; used by tests.
func MergeCount(outcome string) prometheus.Counter {
	return runningLogMerges.WithLabelValues(outcome)
}
