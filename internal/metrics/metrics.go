// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package metrics defines the Prometheus instrumentation for the
// verification pipeline: submission outcomes, validation error codes, fraud
// signals, security events, and API latency. All collectors are registered
// on the default registry via promauto and exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission pipeline metrics.
	SubmissionsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_submissions_validated_total",
			Help: "Total submissions run through the validation pipeline",
		},
		[]string{"proof_type", "result"}, // result: "valid", "invalid", "system_error"
	)

	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_validation_errors_total",
			Help: "Total validation errors by stable error code",
		},
		[]string{"code"},
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proofcheck_validation_duration_seconds",
			Help:    "Duration of full submission validation in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// Fraud detection metrics.
	FraudSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_fraud_signals_total",
			Help: "Total fraud signals raised by signal type",
		},
		[]string{"signal"},
	)

	FraudRiskAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_fraud_risk_assessments_total",
			Help: "Total fraud assessments by resulting risk level",
		},
		[]string{"risk"},
	)

	// Security monitoring metrics.
	SecurityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_security_events_total",
			Help: "Total security events logged by type and severity",
		},
		[]string{"event_type", "severity"},
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proofcheck_active_alerts",
			Help: "Current number of unacknowledged security alerts",
		},
	)

	FlaggedSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_flagged_submissions_total",
			Help: "Total submissions flagged for manual review by decision",
		},
		[]string{"decision"}, // "pending", "approved", "rejected", "escalated"
	)

	// Webhook notifier metrics.
	NotifierDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_notifier_deliveries_total",
			Help: "Total webhook alert delivery attempts by outcome",
		},
		[]string{"outcome"}, // "delivered", "failed", "rate_limited", "breaker_open"
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofcheck_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proofcheck_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proofcheck_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)
)

// RecordValidation records one pipeline run.
func RecordValidation(proofType, result string, elapsed time.Duration) {
	SubmissionsValidated.WithLabelValues(proofType, result).Inc()
	ValidationDuration.Observe(elapsed.Seconds())
}

// RecordValidationError records one validation error code.
func RecordValidationError(code string) {
	ValidationErrors.WithLabelValues(code).Inc()
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
