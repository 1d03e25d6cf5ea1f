// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package submission orchestrates the validation pipeline for one
// proof-of-visit claim: structural checks, challenge window, duplicates,
// rate limits, proof-type allow-list, geofencing, per-variant proof
// validation, and fraud assessment. Findings accumulate; the pipeline never
// short-circuits on the first error and never lets a panic or collaborator
// failure escape as anything other than a single system-error result.
package submission

import (
	"fmt"
	"sync"
	"time"

	"github.com/wanderwin/proofcheck/internal/fraud"
	"github.com/wanderwin/proofcheck/internal/geo"
	"github.com/wanderwin/proofcheck/internal/logging"
	"github.com/wanderwin/proofcheck/internal/metrics"
	"github.com/wanderwin/proofcheck/internal/models"
	"github.com/wanderwin/proofcheck/internal/proof"
)

// FraudChecker assesses one submission for fraud. *fraud.Detector satisfies
// this; tests substitute their own.
type FraudChecker interface {
	Check(sub *models.Submission, ch *models.Challenge, history *models.UserSubmissionHistory) (fraud.Result, error)
}

// Config holds the runtime-togglable validation rules.
type Config struct {
	DuplicatePreventionEnabled bool `json:"duplicate_prevention_enabled"`
	RateLimitingEnabled        bool `json:"rate_limiting_enabled"`
	PhotoValidationEnabled     bool `json:"photo_validation_enabled"`

	// MaxDailySubmissions caps submissions per user in the trailing 24h.
	MaxDailySubmissions int `json:"max_daily_submissions" validate:"min=1"`

	// MinSubmissionInterval is the minimum gap since the user's last
	// submission.
	MinSubmissionInterval time.Duration `json:"min_submission_interval"`

	// GPSAccuracyCeiling is the worst acceptable reported accuracy in
	// meters.
	GPSAccuracyCeiling float64 `json:"gps_accuracy_ceiling" validate:"gt=0"`

	// ReceiptMaxAge bounds receipt timestamp age at submission time.
	ReceiptMaxAge time.Duration `json:"receipt_max_age"`
}

// DefaultConfig returns the production validation rules.
func DefaultConfig() Config {
	return Config{
		DuplicatePreventionEnabled: true,
		RateLimitingEnabled:        true,
		PhotoValidationEnabled:     true,
		MaxDailySubmissions:        50,
		MinSubmissionInterval:      60 * time.Second,
		GPSAccuracyCeiling:         300,
		ReceiptMaxAge:              24 * time.Hour,
	}
}

// Validator runs the full pipeline. Stateless per call: the challenge and
// user history are supplied by the caller. Safe for concurrent use; the
// config may be swapped at runtime.
type Validator struct {
	mu    sync.RWMutex
	cfg   Config
	fraud FraudChecker

	// now is injectable for tests.
	now func() time.Time
}

// NewValidator creates a validator with the given rules and fraud checker.
// A nil checker disables the fraud stage.
func NewValidator(cfg Config, checker FraudChecker) *Validator {
	return &Validator{cfg: cfg, fraud: checker, now: time.Now}
}

// Config returns a copy of the current rules.
func (v *Validator) Config() Config {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cfg
}

// Configure replaces the rules.
func (v *Validator) Configure(cfg Config) error {
	if cfg.MaxDailySubmissions < 1 {
		return fmt.Errorf("max daily submissions must be positive, got %d", cfg.MaxDailySubmissions)
	}
	if cfg.GPSAccuracyCeiling <= 0 {
		return fmt.Errorf("gps accuracy ceiling must be positive, got %f", cfg.GPSAccuracyCeiling)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cfg = cfg
	return nil
}

// SetNow overrides the clock. Tests only.
func (v *Validator) SetNow(now func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = now
}

// Validate runs the whole pipeline over one submission. Business failures
// come back as accumulated errors and warnings; internal failures of any
// kind collapse into a single VALIDATION_SYSTEM_ERROR result.
func (v *Validator) Validate(sub *models.Submission, proofData *models.Proof, ch *models.Challenge, history *models.UserSubmissionHistory) models.ValidationResult {
	result, _ := v.ValidateDetailed(sub, proofData, ch, history)
	return result
}

// ValidateDetailed runs the pipeline and additionally surfaces the fraud
// assessment, when one was produced, so callers can feed security
// monitoring without re-running detection.
func (v *Validator) ValidateDetailed(sub *models.Submission, proofData *models.Proof, ch *models.Challenge, history *models.UserSubmissionHistory) (result models.ValidationResult, assessment *fraud.Result) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("validation pipeline panicked")
			result = models.SystemErrorResult()
			assessment = nil
		}
		recordOutcome(sub, result, time.Since(started))
	}()

	v.mu.RLock()
	cfg := v.cfg
	checker := v.fraud
	nowFn := v.now
	v.mu.RUnlock()

	if sub == nil || ch == nil {
		return models.SystemErrorResult(), nil
	}

	now := nowFn()
	result = models.NewValidationResult()

	v.checkStructural(&result, sub)
	v.checkChallengeWindow(&result, ch, now)
	if cfg.DuplicatePreventionEnabled {
		v.checkDuplicate(&result, sub, history)
	}
	if cfg.RateLimitingEnabled {
		v.checkRateLimits(&result, sub, history, cfg)
	}
	v.checkProofAllowed(&result, sub, ch)

	if sysErr := v.checkGeofence(&result, sub, ch, cfg); sysErr {
		return models.SystemErrorResult(), nil
	}

	if proofData != nil && !(proofData.Type == models.ProofTypePhoto && !cfg.PhotoValidationEnabled) {
		finding, err := proof.Validate(proofData, ch, sub, proof.Config{ReceiptMaxAge: cfg.ReceiptMaxAge})
		if err != nil {
			logging.Warn().Err(err).Str("challenge_id", sub.ChallengeID).Msg("proof dispatch failed")
			return models.SystemErrorResult(), nil
		}
		result.Merge(models.ValidationResult{IsValid: len(finding.Errors) == 0, Errors: finding.Errors, Warnings: finding.Warnings})
	}

	if checker != nil {
		fr, sysErr := v.checkFraud(&result, sub, ch, history, checker)
		if sysErr {
			return models.SystemErrorResult(), nil
		}
		assessment = fr
	}

	return result, assessment
}

// checkStructural verifies the required identifying fields.
func (v *Validator) checkStructural(result *models.ValidationResult, sub *models.Submission) {
	if sub.ChallengeID == "" {
		result.AddError("challenge_id", models.CodeMissingChallengeID, "challenge ID is required")
	}
	if sub.Username == "" {
		result.AddError("username", models.CodeMissingUsername, "username is required")
	}
	if sub.ProofType == "" {
		result.AddError("proof_type", models.CodeMissingProofType, "proof type is required")
	}
}

// checkChallengeWindow verifies the challenge is currently open.
func (v *Validator) checkChallengeWindow(result *models.ValidationResult, ch *models.Challenge, now time.Time) {
	if !ch.EndDate.IsZero() && ch.EndDate.Before(now) {
		result.AddError("challenge_id", models.CodeChallengeExpired, "challenge has ended")
	}
	if !ch.StartDate.IsZero() && now.Before(ch.StartDate) {
		result.AddError("challenge_id", models.CodeChallengeNotStarted, "challenge has not started")
	}
}

// checkDuplicate blocks a second approved claim for the same challenge.
// Rejected priors never block resubmission.
func (v *Validator) checkDuplicate(result *models.ValidationResult, sub *models.Submission, history *models.UserSubmissionHistory) {
	if history == nil {
		return
	}
	if history.HasApprovedSubmission(sub.ChallengeID) {
		result.AddError("challenge_id", models.CodeDuplicateSubmission, "challenge already completed by this user")
	}
}

// checkRateLimits applies the daily cap and the minimum inter-submission
// gap. The two trip independently; both can appear on one result.
func (v *Validator) checkRateLimits(result *models.ValidationResult, sub *models.Submission, history *models.UserSubmissionHistory, cfg Config) {
	if history == nil {
		return
	}

	recent := history.SubmissionsInWindow(sub.SubmittedAt, 24*time.Hour)
	if len(recent) >= cfg.MaxDailySubmissions {
		result.AddError("username", models.CodeRateLimitExceeded,
			fmt.Sprintf("daily submission limit of %d reached", cfg.MaxDailySubmissions))
	}

	if history.LastSubmissionAt != nil {
		if gap := sub.SubmittedAt.Sub(*history.LastSubmissionAt); gap >= 0 && gap < cfg.MinSubmissionInterval {
			result.AddError("username", models.CodeRateLimitExceeded,
				fmt.Sprintf("submissions must be at least %s apart", cfg.MinSubmissionInterval))
		}
	}
}

// checkProofAllowed verifies the proof type against the challenge's
// allow-list. Unknown type tags fail here too.
func (v *Validator) checkProofAllowed(result *models.ValidationResult, sub *models.Submission, ch *models.Challenge) {
	if sub.ProofType == "" {
		return
	}
	if !models.KnownProofType(sub.ProofType) || !ch.ProofRequirements.Allows(sub.ProofType) {
		result.AddError("proof_type", models.CodeInvalidProofType,
			fmt.Sprintf("proof type %q is not accepted for this challenge", sub.ProofType))
	}
}

// checkGeofence verifies the GPS fix quality and distance. Returns true on
// the system-error path: a submission with no coordinates at all cannot be
// adjudicated.
func (v *Validator) checkGeofence(result *models.ValidationResult, sub *models.Submission, ch *models.Challenge, cfg Config) bool {
	if sub.GPS == nil {
		logging.Warn().Str("challenge_id", sub.ChallengeID).Str("username", sub.Username).
			Msg("submission carries no GPS fix")
		return true
	}

	if sub.GPS.Accuracy > cfg.GPSAccuracyCeiling {
		result.AddError("gps.accuracy", models.CodePoorGPSAccuracy,
			fmt.Sprintf("GPS accuracy %.0fm exceeds the %.0fm ceiling", sub.GPS.Accuracy, cfg.GPSAccuracyCeiling))
	}

	dist := geo.DistanceMeters(
		sub.GPS.Latitude, sub.GPS.Longitude,
		ch.Location.Coordinates.Latitude, ch.Location.Coordinates.Longitude,
	)
	if dist > ch.Location.VerificationRadius {
		result.AddError("gps", models.CodeLocationTooFar,
			fmt.Sprintf("submission is %.0fm from the challenge location (max %.0fm)",
				dist, ch.Location.VerificationRadius))
	}
	return false
}

// checkFraud runs the fraud stage and folds its outcome in. Reports the
// system-error path as true: a failed detector is never silently ignored.
func (v *Validator) checkFraud(result *models.ValidationResult, sub *models.Submission, ch *models.Challenge, history *models.UserSubmissionHistory, checker FraudChecker) (*fraud.Result, bool) {
	assessment, err := checker.Check(sub, ch, history)
	if err != nil {
		logging.Error().Err(err).Str("username", sub.Username).Msg("fraud check failed")
		return nil, true
	}

	sub.FraudRiskScore = assessment.Confidence

	switch assessment.Risk {
	case fraud.RiskHigh:
		result.AddError("submission", models.CodeFraudDetected, joinReasons(assessment.Reasons))
	case fraud.RiskMedium:
		result.AddWarning("submission", models.CodeFraudWarning, joinReasons(assessment.Reasons))
	}
	return &assessment, false
}

// joinReasons flattens the detector's reasons into one message.
func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "fraud indicators present"
	}
	msg := reasons[0]
	for _, r := range reasons[1:] {
		msg += "; " + r
	}
	return msg
}

// recordOutcome emits the pipeline metrics for one run.
func recordOutcome(sub *models.Submission, result models.ValidationResult, elapsed time.Duration) {
	proofType := "unknown"
	if sub != nil && sub.ProofType != "" {
		proofType = string(sub.ProofType)
	}

	outcome := "valid"
	if !result.IsValid {
		outcome = "invalid"
	}
	if result.HasErrorCode(models.CodeValidationSystemError) {
		outcome = "system_error"
	}
	metrics.RecordValidation(proofType, outcome, elapsed)

	for _, e := range result.Errors {
		metrics.RecordValidationError(e.Code)
	}
}
