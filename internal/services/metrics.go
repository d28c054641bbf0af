// Package services – pipeline metrics.
//
// Prometheus collectors for ingestion outcomes. HTTP-level metrics live in
// the middleware package; these cover the pipeline itself so dashboards can
// separate transport health from provider health.
package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

var (
	// ingestionsTotal counts finished pipeline runs by terminal outcome
	// (completed / rejected / failed).
	ingestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gastropath_ingestions_total",
			Help: "Total number of ingestion pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	// ingestionDuration observes end-to-end pipeline latency.
	ingestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gastropath_ingestion_duration_seconds",
			Help:    "End-to-end duration of ingestion pipeline runs.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	// enrichmentDegraded counts tolerated enrichment-branch failures by
	// branch (cuisine / image).
	enrichmentDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gastropath_enrichment_degraded_total",
			Help: "Tolerated enrichment failures by branch.",
		},
		[]string{"branch"},
	)

	// providerRequests counts outbound provider calls. The outcome label is
	// "success" or the failure kind, so provider health is visible per
	// upstream without a tracing backend.
	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gastropath_provider_requests_total",
			Help: "Outbound provider calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(ingestionsTotal, ingestionDuration, enrichmentDegraded, providerRequests)
}

// observeProviderCall records one outbound call against a provider.
func observeProviderCall(provider string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	providerRequests.WithLabelValues(provider, outcome).Inc()
}
