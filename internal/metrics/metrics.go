// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics declares the Prometheus instrumentation for the
// discovery service: feed pipeline throughput, scoring latency,
// velocity refresh runs, and store query health.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed pipeline metrics.
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total feed requests by pipeline",
		},
		[]string{"pipeline"},
	)

	FeedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_request_duration_seconds",
			Help:    "Feed assembly duration in seconds by pipeline",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pipeline"},
	)

	FeedItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_items_returned",
			Help:    "Number of items returned per feed request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"pipeline"},
	)

	// Scoring metrics.
	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_duration_seconds",
			Help:    "Relevance scoring duration per clip in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	ScoringExclusionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_exclusions_total",
			Help: "Clips hard-excluded during feed assembly by reason",
		},
		[]string{"reason"}, // "muted_topic", "muted_creator", "blocked", "scored"
	)

	// Velocity tracker metrics.
	VelocityRefreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velocity_refresh_runs_total",
			Help: "Velocity refresh runs by outcome",
		},
		[]string{"trigger", "outcome"}, // trigger: "scheduled"|"manual"; outcome: "success"|"error"
	)

	VelocitySamplesRefreshed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "velocity_samples_refreshed_total",
			Help: "Total velocity samples written by refresh runs",
		},
	)

	VelocitySamplesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "velocity_samples_purged_total",
			Help: "Total expired velocity samples deleted",
		},
	)

	VelocityRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "velocity_refresh_duration_seconds",
			Help:    "Duration of full velocity refresh runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests by endpoint, method, and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)
)

// RecordFeedRequest records one completed feed assembly.
func RecordFeedRequest(pipeline string, items int, duration time.Duration) {
	FeedRequestsTotal.WithLabelValues(pipeline).Inc()
	FeedRequestDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	FeedItemsReturned.WithLabelValues(pipeline).Observe(float64(items))
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(endpoint, method string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordRefreshRun records one velocity refresh run.
func RecordRefreshRun(trigger string, err error, refreshed int, purged int64, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	VelocityRefreshRunsTotal.WithLabelValues(trigger, outcome).Inc()
	VelocitySamplesRefreshed.Add(float64(refreshed))
	VelocitySamplesPurged.Add(float64(purged))
	VelocityRefreshDuration.Observe(duration.Seconds())
}
