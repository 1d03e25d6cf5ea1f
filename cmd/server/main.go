// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Command server runs the Proofcheck verification service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/wanderwin/proofcheck/internal/api"
	"github.com/wanderwin/proofcheck/internal/config"
	"github.com/wanderwin/proofcheck/internal/fraud"
	"github.com/wanderwin/proofcheck/internal/logging"
	"github.com/wanderwin/proofcheck/internal/security"
	"github.com/wanderwin/proofcheck/internal/submission"
	"github.com/wanderwin/proofcheck/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("starting proofcheck")

	var notifier security.Notifier
	if cfg.Notifier.Enabled {
		n, err := security.NewWebhookNotifier(security.WebhookConfig{
			URL:           cfg.Notifier.WebhookURL,
			Timeout:       cfg.Notifier.Timeout,
			RatePerMinute: cfg.Notifier.RatePerMinute,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to build alert notifier")
		}
		notifier = n
	}

	detector := fraud.NewDetector(fraud.Config{
		MaxTravelSpeedKmH:        cfg.Fraud.MaxTravelSpeedKmH,
		SpoofAccuracyMeters:      cfg.Fraud.SpoofAccuracyMeters,
		RapidWindow:              cfg.Fraud.RapidWindow,
		RapidMaxSubmissions:      cfg.Fraud.RapidMaxSubmissions,
		AutomationMinIntervals:   cfg.Fraud.AutomationMinIntervals,
		AutomationMaxStddevRatio: cfg.Fraud.AutomationMaxStddevRatio,
		AutomationMaxMeanGap:     cfg.Fraud.AutomationMaxMeanGap,
	})
	detector.SetEnabled(cfg.Fraud.Enabled)

	validator := submission.NewValidator(submission.Config{
		DuplicatePreventionEnabled: cfg.Validator.DuplicatePreventionEnabled,
		RateLimitingEnabled:        cfg.Validator.RateLimitingEnabled,
		PhotoValidationEnabled:     cfg.Validator.PhotoValidationEnabled,
		MaxDailySubmissions:        cfg.Validator.MaxDailySubmissions,
		MinSubmissionInterval:      cfg.Validator.MinSubmissionInterval,
		GPSAccuracyCeiling:         cfg.Validator.GPSAccuracyCeiling,
		ReceiptMaxAge:              cfg.Validator.ReceiptMaxAge,
	}, detector)

	monitor := security.NewMonitor(security.Config{
		AlertWindow:           cfg.Security.AlertWindow,
		FraudAlertThreshold:   cfg.Security.FraudAlertThreshold,
		DistinctUserThreshold: cfg.Security.DistinctUserThreshold,
		MaxUserEvents:         cfg.Security.MaxUserEvents,
	}, security.NewMemoryStore(), notifier)

	handler := api.NewHandler(validator, detector, monitor,
		submission.NewMemoryChallengeStore(), submission.NewMemoryHistoryStore())
	router := api.NewRouter(handler, cfg.API)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	tree.Add(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("supervisor terminated")
	}
	logging.Info().Msg("proofcheck stopped")
}
