// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package metrics provides Prometheus instrumentation for the engine:
// evaluation throughput and latency, flag frequencies, recommendation
// latency and profile-cache efficiency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationsTotal counts risk evaluations by resulting level.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatewatch_evaluations_total",
			Help: "Total number of listing risk evaluations by risk level",
		},
		[]string{"level"},
	)

	// EvaluationDuration tracks end-to-end risk evaluation latency.
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "estatewatch_evaluation_duration_seconds",
			Help:    "Duration of listing risk evaluations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FlagsTotal counts raised verdict flags by type and severity.
	FlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estatewatch_flags_total",
			Help: "Total number of verdict flags raised, by type and severity",
		},
		[]string{"type", "severity"},
	)

	// FraudulentTotal counts verdicts that crossed the fraud threshold.
	FraudulentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "estatewatch_fraudulent_verdicts_total",
			Help: "Total number of verdicts marked fraudulent",
		},
	)

	// RecommendationsTotal counts recommendation requests.
	RecommendationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "estatewatch_recommendations_total",
			Help: "Total number of recommendation requests served",
		},
	)

	// RecommendationDuration tracks recommendation request latency.
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "estatewatch_recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestDuration tracks HTTP latency by route, method and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estatewatch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// ObserveEvaluation records one completed risk evaluation.
func ObserveEvaluation(level string, fraudulent bool, duration time.Duration) {
	EvaluationsTotal.WithLabelValues(level).Inc()
	EvaluationDuration.Observe(duration.Seconds())
	if fraudulent {
		FraudulentTotal.Inc()
	}
}

// ObserveFlag records one raised verdict flag.
func ObserveFlag(flagType, severity string) {
	FlagsTotal.WithLabelValues(flagType, severity).Inc()
}

// ObserveRecommendation records one served recommendation request.
func ObserveRecommendation(duration time.Duration) {
	RecommendationsTotal.Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RegisterProfileCache exposes the recommendation profile cache hit and miss
// counts. Call once at startup with the service's CacheStats accessors.
func RegisterProfileCache(hits, misses func() float64) {
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "estatewatch_profile_cache_hits_total",
		Help: "Total number of preference profile cache hits",
	}, hits)
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "estatewatch_profile_cache_misses_total",
		Help: "Total number of preference profile cache misses",
	}, misses)
}
