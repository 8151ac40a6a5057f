// Package metrics holds the Prometheus collectors shared across services
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for outbound calls
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	outboundCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stopfinder_outbound_calls_total",
		Help: "Number of calls made to external services",
	}, []string{"service", "operation", "outcome"})

	directoryRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stopfinder_directory_refreshes_total",
		Help: "Number of building directory refreshes",
	}, []string{"outcome"})

	skippedBuildings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stopfinder_directory_skipped_buildings_total",
		Help: "Buildings dropped from a directory refresh",
	})

	skippedCourses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stopfinder_route_skipped_courses_total",
		Help: "Courses left out of a route result",
	}, []string{"reason"})

	routeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stopfinder_route_duration_seconds",
		Help:    "Time spent resolving a route",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(outboundCalls, directoryRefreshes, skippedBuildings, skippedCourses, routeDuration)
}

// ObserveCall records one outbound call
func ObserveCall(service, operation string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	outboundCalls.With(prometheus.Labels{"service": service, "operation": operation, "outcome": outcome}).Inc()
}

// ObserveRefresh records one directory refresh
func ObserveRefresh(err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	directoryRefreshes.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// BuildingSkipped counts a building dropped during a refresh
func BuildingSkipped() {
	skippedBuildings.Inc()
}

// CourseSkipped counts a course left out of a route
func CourseSkipped(reason string) {
	skippedCourses.With(prometheus.Labels{"reason": reason}).Inc()
}

// ObserveRoute records how long a route resolution took
func ObserveRoute(seconds float64) {
	routeDuration.Observe(seconds)
}
