// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package config loads and validates Proofcheck configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the Proofcheck service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Validator ValidatorConfig `koanf:"validator"`
	Fraud     FraudConfig     `koanf:"fraud"`
	Security  SecurityConfig  `koanf:"security"`
	Notifier  NotifierConfig  `koanf:"notifier"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIConfig holds HTTP API behavior settings.
type APIConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
}

// ValidatorConfig holds the runtime-adjustable submission validation rules.
// These are the startup values; the validator exposes them for live
// reconfiguration through the admin API.
type ValidatorConfig struct {
	DuplicatePreventionEnabled bool `koanf:"duplicate_prevention_enabled"`
	RateLimitingEnabled        bool `koanf:"rate_limiting_enabled"`
	PhotoValidationEnabled     bool `koanf:"photo_validation_enabled"`

	// MaxDailySubmissions caps submissions per user per trailing 24 hours.
	MaxDailySubmissions int `koanf:"max_daily_submissions"`

	// MinSubmissionInterval is the minimum gap between two submissions by
	// the same user.
	MinSubmissionInterval time.Duration `koanf:"min_submission_interval"`

	// GPSAccuracyCeiling is the worst acceptable reported GPS accuracy in
	// meters. Fixes above this are rejected as unusable.
	GPSAccuracyCeiling float64 `koanf:"gps_accuracy_ceiling"`

	// ReceiptMaxAge is how old a receipt timestamp may be relative to the
	// submission time.
	ReceiptMaxAge time.Duration `koanf:"receipt_max_age"`
}

// FraudConfig holds fraud detection heuristic thresholds.
type FraudConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxTravelSpeedKmH is the implied-speed ceiling between consecutive
	// GPS fixes. Faster is treated as impossible travel.
	MaxTravelSpeedKmH float64 `koanf:"max_travel_speed_kmh"`

	// SpoofAccuracyMeters is the reported-accuracy bound under which an
	// exact coordinate match with the challenge is treated as spoofed.
	SpoofAccuracyMeters float64 `koanf:"spoof_accuracy_meters"`

	// RapidWindow and RapidMaxSubmissions define the burst detector:
	// more than RapidMaxSubmissions within RapidWindow is flagged.
	RapidWindow         time.Duration `koanf:"rapid_window"`
	RapidMaxSubmissions int           `koanf:"rapid_max_submissions"`

	// Automation cadence detector parameters.
	AutomationMinIntervals   int           `koanf:"automation_min_intervals"`
	AutomationMaxStddevRatio float64       `koanf:"automation_max_stddev_ratio"`
	AutomationMaxMeanGap     time.Duration `koanf:"automation_max_mean_gap"`
}

// SecurityConfig holds security monitoring and alerting thresholds.
type SecurityConfig struct {
	// AlertWindow is the trailing window evaluated for alert conditions.
	AlertWindow time.Duration `koanf:"alert_window"`

	// FraudAlertThreshold is the number of high-severity fraud events in
	// the window that raises an alert.
	FraudAlertThreshold int `koanf:"fraud_alert_threshold"`

	// DistinctUserThreshold escalates the alert to critical when the
	// qualifying events span at least this many distinct users.
	DistinctUserThreshold int `koanf:"distinct_user_threshold"`

	// MaxUserEvents caps the per-user event listing size.
	MaxUserEvents int `koanf:"max_user_events"`
}

// NotifierConfig holds webhook alert delivery settings.
type NotifierConfig struct {
	Enabled    bool          `koanf:"enabled"`
	WebhookURL string        `koanf:"webhook_url"`
	Timeout    time.Duration `koanf:"timeout"`

	// RatePerMinute caps outbound webhook deliveries.
	RatePerMinute int `koanf:"rate_per_minute"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8470,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
			DefaultPageSize:   20,
			MaxPageSize:       100,
		},
		Validator: ValidatorConfig{
			DuplicatePreventionEnabled: true,
			RateLimitingEnabled:        true,
			PhotoValidationEnabled:     true,
			MaxDailySubmissions:        50,
			MinSubmissionInterval:      60 * time.Second,
			GPSAccuracyCeiling:         300,
			ReceiptMaxAge:              24 * time.Hour,
		},
		Fraud: FraudConfig{
			Enabled:                  true,
			MaxTravelSpeedKmH:        200,
			SpoofAccuracyMeters:      2,
			RapidWindow:              3 * time.Minute,
			RapidMaxSubmissions:      5,
			AutomationMinIntervals:   5,
			AutomationMaxStddevRatio: 0.1,
			AutomationMaxMeanGap:     10 * time.Minute,
		},
		Security: SecurityConfig{
			AlertWindow:           time.Hour,
			FraudAlertThreshold:   10,
			DistinctUserThreshold: 5,
			MaxUserEvents:         20,
		},
		Notifier: NotifierConfig{
			Enabled:       false,
			WebhookURL:    "",
			Timeout:       10 * time.Second,
			RatePerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Validator.MaxDailySubmissions < 1 {
		return fmt.Errorf("validator.max_daily_submissions must be positive, got %d", c.Validator.MaxDailySubmissions)
	}
	if c.Validator.MinSubmissionInterval < 0 {
		return fmt.Errorf("validator.min_submission_interval must not be negative, got %s", c.Validator.MinSubmissionInterval)
	}
	if c.Validator.GPSAccuracyCeiling <= 0 {
		return fmt.Errorf("validator.gps_accuracy_ceiling must be positive, got %f", c.Validator.GPSAccuracyCeiling)
	}
	if c.Fraud.MaxTravelSpeedKmH <= 0 {
		return fmt.Errorf("fraud.max_travel_speed_kmh must be positive, got %f", c.Fraud.MaxTravelSpeedKmH)
	}
	if c.Security.FraudAlertThreshold < 1 {
		return fmt.Errorf("security.fraud_alert_threshold must be positive, got %d", c.Security.FraudAlertThreshold)
	}
	if c.Security.DistinctUserThreshold < 1 {
		return fmt.Errorf("security.distinct_user_threshold must be positive, got %d", c.Security.DistinctUserThreshold)
	}
	if c.Notifier.Enabled && c.Notifier.WebhookURL == "" {
		return fmt.Errorf("notifier.webhook_url is required when the notifier is enabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
