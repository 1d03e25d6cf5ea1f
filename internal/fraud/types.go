// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package fraud implements the deterministic fraud heuristics: GPS spoofing,
// impossible travel, rapid submission bursts, and automation cadence. No ML,
// no external calls; every assessment is reproducible from its inputs and
// every finding carries a structured signal tag plus a human-readable reason.
package fraud

// RiskLevel is the aggregate fraud risk of one submission.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Action is the recommended disposition derived from the risk level.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReview  Action = "review"
	ActionReject  Action = "reject"
)

// SignalTag identifies a heuristic that fired. Tags are stable identifiers
// consumed by the security monitor's tag-to-event-type table.
type SignalTag string

const (
	SignalGPSSpoofing      SignalTag = "gps_spoofing"
	SignalImpossibleTravel SignalTag = "impossible_travel"
	SignalRapidSubmissions SignalTag = "rapid_submissions"
	SignalAutomation       SignalTag = "automated_behavior"
)

// Strength classifies how conclusive a fired signal is. Any strong signal
// forces high risk; weak signals alone cap at medium.
type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
)

// Signal is one fired heuristic.
type Signal struct {
	Tag      SignalTag `json:"tag"`
	Strength Strength  `json:"strength"`
	Reason   string    `json:"reason"`
}

// Result is the aggregate fraud assessment for one submission.
type Result struct {
	Risk              RiskLevel `json:"risk"`
	Signals           []Signal  `json:"signals"`
	Reasons           []string  `json:"reasons"`
	Confidence        float64   `json:"confidence"`
	RecommendedAction Action    `json:"recommended_action"`
}

// HasSignal returns true if a signal with the given tag fired.
func (r *Result) HasSignal(tag SignalTag) bool {
	for _, s := range r.Signals {
		if s.Tag == tag {
			return true
		}
	}
	return false
}
