// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package security

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/wanderwin/proofcheck/internal/logging"
	"github.com/wanderwin/proofcheck/internal/metrics"
)

// WebhookConfig configures outbound alert delivery.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration

	// RatePerMinute caps deliveries; excess alerts are dropped, not queued.
	RatePerMinute int
}

// DefaultWebhookConfig returns the production delivery settings, minus the
// URL which has no sane default.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:       10 * time.Second,
		RatePerMinute: 30,
	}
}

// WebhookNotifier POSTs alerts as JSON to a configured endpoint. Delivery
// is rate limited and runs behind a circuit breaker so a dead endpoint
// cannot pile up goroutines or sockets.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewWebhookNotifier creates a notifier for the given endpoint.
func NewWebhookNotifier(cfg WebhookConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook notifier requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "alert-webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("webhook circuit breaker state change")
		},
	})

	return &WebhookNotifier{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute),
		breaker: breaker,
	}, nil
}

// webhookPayload is the delivery envelope.
type webhookPayload struct {
	Source    string        `json:"source"`
	Alert     SecurityAlert `json:"alert"`
	Timestamp time.Time     `json:"timestamp"`
}

// NotifyAlert delivers one alert. Rate-limit drops and open-breaker drops
// return errors so callers can log them; none of this is retried.
func (n *WebhookNotifier) NotifyAlert(alert SecurityAlert) error {
	if !n.limiter.Allow() {
		metrics.NotifierDeliveries.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("alert %s dropped: delivery rate limit reached", alert.ID)
	}

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(alert)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.NotifierDeliveries.WithLabelValues("breaker_open").Inc()
		} else {
			metrics.NotifierDeliveries.WithLabelValues("failed").Inc()
		}
		return fmt.Errorf("alert %s delivery failed: %w", alert.ID, err)
	}

	metrics.NotifierDeliveries.WithLabelValues("delivered").Inc()
	return nil
}

// post performs the HTTP delivery.
func (n *WebhookNotifier) post(alert SecurityAlert) error {
	body, err := json.Marshal(webhookPayload{
		Source:    "proofcheck",
		Alert:     alert,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "proofcheck-notifier")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
