// Package metrics provides Prometheus metrics for the Orchard document core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Git subprocess metrics
	gitCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_git_commands_total",
			Help: "Total number of git subprocess invocations",
		},
		[]string{"command", "status"},
	)

	gitCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchard_git_command_duration_seconds",
			Help:    "Git subprocess duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// Tree listing metrics
	treeListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_tree_listings_total",
			Help: "Total number of document tree listings",
		},
		[]string{"status"},
	)

	treeEntriesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchard_tree_entries_returned",
			Help:    "Entries returned per tree listing",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// File access metrics
	fileReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_file_reads_total",
			Help: "Total number of document reads",
		},
		[]string{"status"},
	)

	fileWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_file_writes_total",
			Help: "Total number of document writes",
		},
		[]string{"status"},
	)

	fileBytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchard_file_bytes_read_total",
			Help: "Total bytes read from documents",
		},
	)

	fileBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchard_file_bytes_written_total",
			Help: "Total bytes written to documents",
		},
	)

	// Sandbox metrics
	containmentDenialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orchard_containment_denials_total",
			Help: "Total paths rejected by the containment boundary",
		},
	)

	// Classification metrics
	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_classifications_total",
			Help: "Total folder classifications by category",
		},
		[]string{"category"},
	)

	// Project store metrics
	storeQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_store_queries_total",
			Help: "Total project store queries",
		},
		[]string{"backend", "op", "status"},
	)

	storeQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchard_store_query_duration_seconds",
			Help:    "Project store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// Watcher metrics
	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchard_watch_events_total",
			Help: "Total filesystem watch events published",
		},
		[]string{"op"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGitCommand records one git subprocess invocation.
func RecordGitCommand(command string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	gitCommandsTotal.WithLabelValues(command, status).Inc()
	gitCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordTreeListing records a tree listing and its entry count.
func RecordTreeListing(entries int, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	treeListingsTotal.WithLabelValues(status).Inc()
	if success {
		treeEntriesReturned.Observe(float64(entries))
	}
}

// RecordFileRead records a document read.
func RecordFileRead(bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	fileReadsTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		fileBytesRead.Add(float64(bytes))
	}
}

// RecordFileWrite records a document write.
func RecordFileWrite(bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	fileWritesTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		fileBytesWritten.Add(float64(bytes))
	}
}

// RecordContainmentDenial records a path rejected by the boundary.
func RecordContainmentDenial() {
	containmentDenialsTotal.Inc()
}

// RecordClassification records a folder classification outcome.
func RecordClassification(category string) {
	classificationsTotal.WithLabelValues(category).Inc()
}

// RecordStoreQuery records a project store query.
func RecordStoreQuery(backend, op string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	storeQueriesTotal.WithLabelValues(backend, op, status).Inc()
	storeQueryDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordWatchEvent records a published filesystem watch event.
func RecordWatchEvent(op string) {
	watchEventsTotal.WithLabelValues(op).Inc()
}
