// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package models

import (
	"fmt"
	"time"
)

// ProofType tags the proof payload variant. The set is closed: validators
// dispatch on this tag, never on which optional payload happens to be set.
type ProofType string

const (
	ProofTypePhoto            ProofType = "photo"
	ProofTypeReceipt          ProofType = "receipt"
	ProofTypeGPSCheckin       ProofType = "gps_checkin"
	ProofTypeLocationQuestion ProofType = "location_question"
)

// KnownProofType returns true if t is one of the closed proof variants.
func KnownProofType(t ProofType) bool {
	switch t {
	case ProofTypePhoto, ProofTypeReceipt, ProofTypeGPSCheckin, ProofTypeLocationQuestion:
		return true
	default:
		return false
	}
}

// PhotoProof is evidence in the form of a photo taken at the location.
// The signage/interior flags are self-reported hints; they influence
// warnings only and never block a submission.
type PhotoProof struct {
	ImageURL       string `json:"image_url"`
	HasSignage     bool   `json:"has_signage"`
	IsInteriorView bool   `json:"is_interior_view"`
}

// ReceiptProof is evidence in the form of a purchase receipt from a
// business at the location.
type ReceiptProof struct {
	ImageURL     string    `json:"image_url"`
	BusinessName string    `json:"business_name"`
	Timestamp    time.Time `json:"timestamp"`
	Amount       float64   `json:"amount,omitempty"`
}

// GPSCheckinProof is evidence in the form of an explicit on-site check-in.
// Radius optionally overrides the challenge verification radius for this
// check-in; zero means use the challenge's.
type GPSCheckinProof struct {
	Coordinates Coordinates `json:"coordinates"`
	Accuracy    float64     `json:"accuracy"` // meters
	Radius      float64     `json:"radius,omitempty"`
	CheckinTime time.Time   `json:"checkin_time"`
}

// LocationQuestionProof is evidence in the form of an answer to a question
// only someone at the location could answer.
type LocationQuestionProof struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`
}

// Proof is the closed discriminated union over the four proof variants.
// Exactly the payload matching Type must be non-nil; Payload enforces this.
// Proofs are ephemeral: supplied per validation call, never persisted here.
type Proof struct {
	Type             ProofType              `json:"type" validate:"required"`
	Photo            *PhotoProof            `json:"photo,omitempty"`
	Receipt          *ReceiptProof          `json:"receipt,omitempty"`
	GPSCheckin       *GPSCheckinProof       `json:"gps_checkin,omitempty"`
	LocationQuestion *LocationQuestionProof `json:"location_question,omitempty"`
}

// Payload returns the payload matching the type tag, or an error when the
// tag is unknown or the matching payload is absent. Callers must go through
// this accessor rather than probing the optional fields.
func (p *Proof) Payload() (interface{}, error) {
	switch p.Type {
	case ProofTypePhoto:
		if p.Photo == nil {
			return nil, fmt.Errorf("proof tagged %q has no photo payload", p.Type)
		}
		return p.Photo, nil
	case ProofTypeReceipt:
		if p.Receipt == nil {
			return nil, fmt.Errorf("proof tagged %q has no receipt payload", p.Type)
		}
		return p.Receipt, nil
	case ProofTypeGPSCheckin:
		if p.GPSCheckin == nil {
			return nil, fmt.Errorf("proof tagged %q has no gps_checkin payload", p.Type)
		}
		return p.GPSCheckin, nil
	case ProofTypeLocationQuestion:
		if p.LocationQuestion == nil {
			return nil, fmt.Errorf("proof tagged %q has no location_question payload", p.Type)
		}
		return p.LocationQuestion, nil
	default:
		return nil, fmt.Errorf("unknown proof type %q", p.Type)
	}
}
