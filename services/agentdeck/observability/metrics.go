// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the AgentDeck
// service: action counters, generation latency, and live watch gauges.
// Metrics are exposed on /metrics for Prometheus + Grafana.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "agentdeck"

// Metrics holds all Prometheus metrics for the service.
// Initialize once at startup via InitMetrics().
type Metrics struct {
	// ActionsTotal counts workflow actions by action and status.
	// Labels: action (generate, save, run, publish, download,
	// interpret, feedback, summarize), status (success, error)
	ActionsTotal *prometheus.CounterVec

	// ActionDurationSeconds measures end-to-end action latency.
	// Labels: action
	ActionDurationSeconds *prometheus.HistogramVec

	// GenerationFailuresTotal counts model call failures by flow and
	// reason (schema_violation, unavailable).
	GenerationFailuresTotal *prometheus.CounterVec

	// ActiveWatches tracks live snapshot subscriptions currently open.
	// Labels: target (agents, agent, explore, logs)
	ActiveWatches *prometheus.GaugeVec

	// CommitConflictsTotal counts atomic batches discarded because of
	// a transaction conflict.
	CommitConflictsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		ActionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "actions_total",
				Help:      "Total workflow actions by action and status",
			},
			[]string{"action", "status"},
		),

		ActionDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "action_duration_seconds",
				Help:      "End-to-end action latency in seconds",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"action"},
		),

		GenerationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "generation_failures_total",
				Help:      "Model call failures by flow and reason",
			},
			[]string{"flow", "reason"},
		),

		ActiveWatches: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_watches",
				Help:      "Currently open live snapshot subscriptions",
			},
			[]string{"target"},
		),

		CommitConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "commit_conflicts_total",
				Help:      "Atomic batches discarded due to transaction conflicts",
			},
		),
	}
	return DefaultMetrics
}

// RecordAction records a completed action and its latency.
func (m *Metrics) RecordAction(action string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ActionsTotal.WithLabelValues(action, status).Inc()
	m.ActionDurationSeconds.WithLabelValues(action).Observe(seconds)
}

// RecordGenerationFailure records a failed model call.
func (m *Metrics) RecordGenerationFailure(flow, reason string) {
	m.GenerationFailuresTotal.WithLabelValues(flow, reason).Inc()
}

// WatchStarted increments the active watch gauge for a target.
func (m *Metrics) WatchStarted(target string) {
	m.ActiveWatches.WithLabelValues(target).Inc()
}

// WatchEnded decrements the active watch gauge for a target.
func (m *Metrics) WatchEnded(target string) {
	m.ActiveWatches.WithLabelValues(target).Dec()
}
