// Package metrics registers the Prometheus collectors for the ingestion
// pipeline: publish and consume counters per queue, persistence outcomes,
// and write latency.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PublishedTotal counts messages accepted by the broker, per queue.
	PublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hmc_messages_published_total",
		Help: "Total number of messages accepted by the broker",
	}, []string{"queue"})

	// PublishFailuresTotal counts publishes the broker rejected or that
	// timed out, per queue. With publish_failure_mode=ignore these are
	// silently-lost submissions.
	PublishFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hmc_publish_failures_total",
		Help: "Total number of failed publishes",
	}, []string{"queue"})

	// ConsumedTotal counts deliveries received by the worker, per queue.
	// Includes redeliveries.
	ConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hmc_messages_consumed_total",
		Help: "Total number of deliveries received from the broker",
	}, []string{"queue"})

	// PersistedTotal counts records written durably, per queue.
	PersistedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hmc_records_persisted_total",
		Help: "Total number of records written to the store",
	}, []string{"queue"})

	// RetriesTotal counts persistence retry attempts, per queue.
	RetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hmc_persist_retries_total",
		Help: "Total number of persistence retry attempts",
	}, []string{"queue"})

	// RejectedTotal counts deliveries handed back to the broker after
	// retry exhaustion or malformed payloads, per queue.
	RejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hmc_deliveries_rejected_total",
		Help: "Total number of deliveries nacked back to the broker",
	}, []string{"queue"})

	// InsertDurationSeconds observes the duration of store batch inserts.
	InsertDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hmc_insert_duration_seconds",
		Help:    "Duration of store batch insert operations in seconds",
		Buckets: prometheus.DefBuckets,
	})

	registerOnce sync.Once
)

// Register registers all collectors with the default registry.
// Safe to call from both binaries; registration happens once per process.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PublishedTotal,
			PublishFailuresTotal,
			ConsumedTotal,
			PersistedTotal,
			RetriesTotal,
			RejectedTotal,
			InsertDurationSeconds,
		)
	})
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
