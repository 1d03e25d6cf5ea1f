// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package models defines the domain types shared across the verification
// pipeline: challenges, submissions, proof payloads, and validation results.
// These are plain data carriers; the challenge catalog and user history are
// owned by external stores and supplied per call.
package models

import "time"

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// GPSFix is a timestamped GPS reading with a reported accuracy radius.
type GPSFix struct {
	Latitude  float64   `json:"latitude" validate:"latitude"`
	Longitude float64   `json:"longitude" validate:"longitude"`
	Accuracy  float64   `json:"accuracy"` // meters, 68% confidence radius as reported by the device
	Timestamp time.Time `json:"timestamp"`
}

// ChallengeStatus tracks the lifecycle of a published challenge.
type ChallengeStatus string

const (
	ChallengeStatusActive  ChallengeStatus = "active"
	ChallengeStatusExpired ChallengeStatus = "expired"
	ChallengeStatusClosed  ChallengeStatus = "closed"
)

// ChallengeLocation is the geographic anchor of a challenge.
type ChallengeLocation struct {
	Coordinates Coordinates `json:"coordinates"`

	// VerificationRadius is the maximum allowed distance in meters between
	// a submitted GPS fix and the challenge coordinates.
	VerificationRadius float64 `json:"verification_radius"`
}

// ProofRequirements lists the proof types a challenge accepts.
type ProofRequirements struct {
	Types []ProofType `json:"types"`
}

// Allows returns true if the given proof type is accepted.
func (r ProofRequirements) Allows(t ProofType) bool {
	for _, pt := range r.Types {
		if pt == t {
			return true
		}
	}
	return false
}

// Challenge is a location-bound challenge from the external catalog.
// Immutable once published except for status transitions.
type Challenge struct {
	ID                string            `json:"id" validate:"required"`
	Location          ChallengeLocation `json:"location"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	ProofRequirements ProofRequirements `json:"proof_requirements"`
	Status            ChallengeStatus   `json:"status"`
}

// VerificationStatus is the adjudication state of a submission.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusApproved VerificationStatus = "approved"
	VerificationStatusRejected VerificationStatus = "rejected"
)

// Submission is a single proof-of-visit claim.
type Submission struct {
	ID                 string             `json:"id"`
	ChallengeID        string             `json:"challenge_id"`
	Username           string             `json:"username"`
	ProofType          ProofType          `json:"proof_type"`
	GPS                *GPSFix            `json:"gps,omitempty"`
	SubmittedAt        time.Time          `json:"submitted_at"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	FraudRiskScore     float64            `json:"fraud_risk_score"`
}

// UserSubmissionHistory is the read-only per-user submission record supplied
// by the external history store.
type UserSubmissionHistory struct {
	Username                string       `json:"username"`
	Submissions             []Submission `json:"submissions"`
	LastSubmissionAt        *time.Time   `json:"last_submission_at,omitempty"`
	SuspiciousActivityCount int          `json:"suspicious_activity_count"`
}

// SubmissionsInWindow returns the submissions made within the trailing
// window ending at ref, newest first not guaranteed (order preserved).
func (h *UserSubmissionHistory) SubmissionsInWindow(ref time.Time, window time.Duration) []Submission {
	cutoff := ref.Add(-window)
	var out []Submission
	for _, s := range h.Submissions {
		if s.SubmittedAt.After(cutoff) && !s.SubmittedAt.After(ref) {
			out = append(out, s)
		}
	}
	return out
}

// HasApprovedSubmission returns true if the user already holds an approved
// submission for the challenge. Rejected priors never count: a rejection
// must not block resubmission.
func (h *UserSubmissionHistory) HasApprovedSubmission(challengeID string) bool {
	for _, s := range h.Submissions {
		if s.ChallengeID == challengeID && s.VerificationStatus == VerificationStatusApproved {
			return true
		}
	}
	return false
}
