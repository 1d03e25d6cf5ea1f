// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func testAlert() SecurityAlert {
	return SecurityAlert{
		ID:          "fraud-surge-20260314T11",
		Title:       "Fraud detection surge",
		Severity:    SeverityCritical,
		TriggeredAt: time.Date(2026, 3, 14, 11, 5, 0, 0, time.UTC),
		EventCount:  12,
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultWebhookConfig()
	cfg.URL = server.URL
	n, err := NewWebhookNotifier(cfg)
	if err != nil {
		t.Fatalf("NewWebhookNotifier() error: %v", err)
	}

	if err := n.NotifyAlert(testAlert()); err != nil {
		t.Fatalf("NotifyAlert() error: %v", err)
	}
	if got.Source != "proofcheck" {
		t.Errorf("Source = %s, want proofcheck", got.Source)
	}
	if got.Alert.ID != "fraud-surge-20260314T11" {
		t.Errorf("Alert.ID = %s", got.Alert.ID)
	}
}

func TestWebhookNotifierNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultWebhookConfig()
	cfg.URL = server.URL
	n, err := NewWebhookNotifier(cfg)
	if err != nil {
		t.Fatalf("NewWebhookNotifier() error: %v", err)
	}
	if err := n.NotifyAlert(testAlert()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestWebhookNotifierBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := DefaultWebhookConfig()
	cfg.URL = server.URL
	cfg.RatePerMinute = 600
	n, err := NewWebhookNotifier(cfg)
	if err != nil {
		t.Fatalf("NewWebhookNotifier() error: %v", err)
	}

	for i := 0; i < 6; i++ {
		if err := n.NotifyAlert(testAlert()); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}
	// Three consecutive failures trip the breaker; later attempts are
	// rejected without reaching the endpoint.
	if got := calls.Load(); got != 3 {
		t.Errorf("endpoint saw %d calls, want 3", got)
	}
}

func TestWebhookNotifierRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultWebhookConfig()
	cfg.URL = server.URL
	cfg.RatePerMinute = 1
	n, err := NewWebhookNotifier(cfg)
	if err != nil {
		t.Fatalf("NewWebhookNotifier() error: %v", err)
	}

	if err := n.NotifyAlert(testAlert()); err != nil {
		t.Fatalf("first delivery should pass: %v", err)
	}
	if err := n.NotifyAlert(testAlert()); err == nil {
		t.Error("second delivery should be rate limited")
	}
}

func TestWebhookNotifierRequiresURL(t *testing.T) {
	if _, err := NewWebhookNotifier(DefaultWebhookConfig()); err == nil {
		t.Error("expected error for missing URL")
	}
}
