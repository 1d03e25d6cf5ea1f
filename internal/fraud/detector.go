// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package fraud

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/wanderwin/proofcheck/internal/geo"
	"github.com/wanderwin/proofcheck/internal/metrics"
	"github.com/wanderwin/proofcheck/internal/models"
)

// Config holds the heuristic thresholds. Passed explicitly; there are no
// global threshold overrides.
type Config struct {
	// MaxTravelSpeedKmH is the implied-speed ceiling between the previous
	// GPS fix and the current one.
	MaxTravelSpeedKmH float64

	// SpoofAccuracyMeters: a reported accuracy at or below this, combined
	// with coordinates identical to the challenge's, is treated as spoofed.
	// Real devices do not produce exact venue coordinates at 2m accuracy.
	SpoofAccuracyMeters float64

	// RapidWindow and RapidMaxSubmissions define the burst detector.
	RapidWindow         time.Duration
	RapidMaxSubmissions int

	// AutomationMinIntervals is the minimum number of inter-submission
	// gaps needed before cadence analysis applies.
	AutomationMinIntervals int

	// AutomationMaxStddevRatio flags cadences whose standard deviation is
	// below this fraction of the mean gap.
	AutomationMaxStddevRatio float64

	// AutomationMaxMeanGap bounds the mean gap for cadence analysis; slow
	// regular patterns are human-plausible.
	AutomationMaxMeanGap time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxTravelSpeedKmH:        200,
		SpoofAccuracyMeters:      2,
		RapidWindow:              3 * time.Minute,
		RapidMaxSubmissions:      5,
		AutomationMinIntervals:   5,
		AutomationMaxStddevRatio: 0.1,
		AutomationMaxMeanGap:     10 * time.Minute,
	}
}

// Detector runs the fraud heuristics. Safe for concurrent use; the config
// may be swapped at runtime through Configure.
type Detector struct {
	mu  sync.RWMutex
	cfg Config

	enabled bool
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg, enabled: true}
}

// Config returns a copy of the current thresholds.
func (d *Detector) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Configure replaces the thresholds.
func (d *Detector) Configure(cfg Config) error {
	if cfg.MaxTravelSpeedKmH <= 0 {
		return fmt.Errorf("max travel speed must be positive, got %f", cfg.MaxTravelSpeedKmH)
	}
	if cfg.RapidWindow <= 0 {
		return fmt.Errorf("rapid window must be positive, got %s", cfg.RapidWindow)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	return nil
}

// Enabled reports whether the detector is active.
func (d *Detector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled toggles the detector.
func (d *Detector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// Check assesses one submission against the user's history. Deterministic:
// all state is supplied by the caller. A disabled detector reports low risk.
func (d *Detector) Check(sub *models.Submission, ch *models.Challenge, history *models.UserSubmissionHistory) (Result, error) {
	if sub == nil || ch == nil {
		return Result{}, fmt.Errorf("fraud check requires submission and challenge")
	}

	d.mu.RLock()
	cfg := d.cfg
	enabled := d.enabled
	d.mu.RUnlock()

	if !enabled {
		return lowRiskResult(), nil
	}

	var signals []Signal
	if s, ok := checkSpoofing(sub, ch, cfg); ok {
		signals = append(signals, s)
	}
	if s, ok := checkImpossibleTravel(sub, history, cfg); ok {
		signals = append(signals, s)
	}
	if s, ok := checkRapidSubmissions(sub, history, cfg); ok {
		signals = append(signals, s)
	}
	if s, ok := checkAutomation(history, cfg); ok {
		signals = append(signals, s)
	}

	result := aggregate(signals)

	for _, s := range result.Signals {
		metrics.FraudSignals.WithLabelValues(string(s.Tag)).Inc()
	}
	metrics.FraudRiskAssessments.WithLabelValues(string(result.Risk)).Inc()

	return result, nil
}

// checkSpoofing fires when the submitted fix sits exactly on the challenge
// coordinates with an implausibly tight accuracy claim.
func checkSpoofing(sub *models.Submission, ch *models.Challenge, cfg Config) (Signal, bool) {
	if sub.GPS == nil {
		return Signal{}, false
	}
	loc := ch.Location.Coordinates
	if !geo.SameCoordinates(sub.GPS.Latitude, sub.GPS.Longitude, loc.Latitude, loc.Longitude) {
		return Signal{}, false
	}
	if sub.GPS.Accuracy > cfg.SpoofAccuracyMeters {
		return Signal{}, false
	}
	return Signal{
		Tag:      SignalGPSSpoofing,
		Strength: StrengthStrong,
		Reason: fmt.Sprintf("GPS spoofing detected: coordinates match the challenge exactly with %.1fm claimed accuracy",
			sub.GPS.Accuracy),
	}, true
}

// checkImpossibleTravel compares the current fix against the most recent
// prior fix and fires when the implied speed exceeds the ceiling.
func checkImpossibleTravel(sub *models.Submission, history *models.UserSubmissionHistory, cfg Config) (Signal, bool) {
	if sub.GPS == nil || history == nil {
		return Signal{}, false
	}

	prev := latestFixBefore(history, sub.SubmittedAt)
	if prev == nil {
		return Signal{}, false
	}

	speed := geo.ImpliedSpeedKmH(
		prev.Latitude, prev.Longitude, prev.Timestamp,
		sub.GPS.Latitude, sub.GPS.Longitude, sub.GPS.Timestamp,
	)
	if speed <= cfg.MaxTravelSpeedKmH {
		return Signal{}, false
	}
	return Signal{
		Tag:      SignalImpossibleTravel,
		Strength: StrengthStrong,
		Reason:   fmt.Sprintf("Impossible travel speed detected: %.0f km/h since previous fix", speed),
	}, true
}

// latestFixBefore returns the GPS fix of the most recent prior submission
// with one, or nil.
func latestFixBefore(history *models.UserSubmissionHistory, ref time.Time) *models.GPSFix {
	var best *models.GPSFix
	var bestAt time.Time
	for i := range history.Submissions {
		s := &history.Submissions[i]
		if s.GPS == nil || !s.SubmittedAt.Before(ref) {
			continue
		}
		if best == nil || s.SubmittedAt.After(bestAt) {
			best = s.GPS
			bestAt = s.SubmittedAt
		}
	}
	return best
}

// checkRapidSubmissions fires when the user's trailing-window submission
// count exceeds the burst limit.
func checkRapidSubmissions(sub *models.Submission, history *models.UserSubmissionHistory, cfg Config) (Signal, bool) {
	if history == nil {
		return Signal{}, false
	}
	recent := history.SubmissionsInWindow(sub.SubmittedAt, cfg.RapidWindow)
	if len(recent) <= cfg.RapidMaxSubmissions {
		return Signal{}, false
	}
	return Signal{
		Tag:      SignalRapidSubmissions,
		Strength: StrengthWeak,
		Reason: fmt.Sprintf("Rapid submission pattern detected: %d submissions within %s",
			len(recent), cfg.RapidWindow),
	}, true
}

// checkAutomation fires on near-constant submission cadence: enough
// intervals, tight spread relative to the mean, mean gap short enough to be
// machine-plausible.
func checkAutomation(history *models.UserSubmissionHistory, cfg Config) (Signal, bool) {
	if history == nil || len(history.Submissions) < cfg.AutomationMinIntervals+1 {
		return Signal{}, false
	}

	times := make([]time.Time, len(history.Submissions))
	for i, s := range history.Submissions {
		times[i] = s.SubmittedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}
	if len(intervals) < cfg.AutomationMinIntervals {
		return Signal{}, false
	}

	mean := meanOf(intervals)
	if mean <= 0 || mean >= cfg.AutomationMaxMeanGap.Seconds() {
		return Signal{}, false
	}
	if stddevOf(intervals, mean) >= cfg.AutomationMaxStddevRatio*mean {
		return Signal{}, false
	}
	return Signal{
		Tag:      SignalAutomation,
		Strength: StrengthWeak,
		Reason: fmt.Sprintf("Automation pattern detected: %d submissions at near-constant %.0fs intervals",
			len(times), mean),
	}, true
}

func meanOf(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stddevOf(vals []float64, mean float64) float64 {
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// aggregate folds fired signals into a risk level, action, and confidence.
// Any strong signal forces high risk; weak signals alone yield medium.
func aggregate(signals []Signal) Result {
	if len(signals) == 0 {
		return lowRiskResult()
	}

	var strong, weak int
	reasons := make([]string, len(signals))
	for i, s := range signals {
		reasons[i] = s.Reason
		if s.Strength == StrengthStrong {
			strong++
		} else {
			weak++
		}
	}

	risk := RiskMedium
	action := ActionReview
	if strong > 0 {
		risk = RiskHigh
		action = ActionReject
	}

	confidence := 0.5 + 0.25*float64(strong) + 0.15*float64(weak)
	if confidence > 0.99 {
		confidence = 0.99
	}

	return Result{
		Risk:              risk,
		Signals:           signals,
		Reasons:           reasons,
		Confidence:        confidence,
		RecommendedAction: action,
	}
}

// lowRiskResult is the clean assessment: nothing fired.
func lowRiskResult() Result {
	return Result{
		Risk:              RiskLow,
		Confidence:        0.9,
		RecommendedAction: ActionApprove,
	}
}
