package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	fixesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presence_server",
		Subsystem: "pipeline",
		Name:      "fixes_processed_total",
		Help:      "Number of fixes that completed the pipeline, by ingest source.",
	}, []string{"source"})

	invalidMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "presence_server",
		Subsystem: "pipeline",
		Name:      "invalid_messages_total",
		Help:      "Number of inbound messages rejected for missing or malformed fields.",
	})

	staleUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "presence_server",
		Subsystem: "pipeline",
		Name:      "stale_updates_total",
		Help:      "Number of fixes rejected by the monotonic timestamp guard.",
	})

	enrichmentFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presence_server",
		Subsystem: "enrichment",
		Name:      "failures_total",
		Help:      "Number of failed enrichment lookups, by step.",
	}, []string{"step"})

	numberAtHome = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "presence_server",
		Subsystem: "roster",
		Name:      "number_at_home",
		Help:      "Number of users currently classified as at home.",
	})
)

func init() {
	prometheus.MustRegister(fixesProcessed, invalidMessages, staleUpdates, enrichmentFailures, numberAtHome)
}

// RecordFixProcessed counts a fully processed fix for the given source.
func RecordFixProcessed(source string) {
	fixesProcessed.WithLabelValues(source).Inc()
}

// RecordInvalidMessage counts a rejected inbound message.
func RecordInvalidMessage() {
	invalidMessages.Inc()
}

// RecordStaleUpdate counts a fix discarded by the monotonic guard.
func RecordStaleUpdate() {
	staleUpdates.Inc()
}

// RecordEnrichmentFailure counts a failed lookup for one enrichment step.
func RecordEnrichmentFailure(step string) {
	enrichmentFailures.WithLabelValues(step).Inc()
}

// SetNumberAtHome updates the at-home gauge.
func SetNumberAtHome(n int) {
	numberAtHome.Set(float64(n))
}
