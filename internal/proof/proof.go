// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package proof validates the per-variant proof payloads. Each variant has
// one pure validator function dispatched by the type tag through a registry;
// validators never probe which optional payload happens to be populated.
package proof

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wanderwin/proofcheck/internal/geo"
	"github.com/wanderwin/proofcheck/internal/models"
)

// Config carries the tunable limits the variant validators need. Supplied
// per call; validators hold no state.
type Config struct {
	// ReceiptMaxAge is how old a receipt timestamp may be relative to the
	// submission time.
	ReceiptMaxAge time.Duration
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		ReceiptMaxAge: 24 * time.Hour,
	}
}

// Finding is the outcome of validating one proof payload.
type Finding struct {
	Errors   []models.ValidationIssue
	Warnings []models.ValidationIssue
}

func (f *Finding) addError(field, code, message string) {
	f.Errors = append(f.Errors, models.ValidationIssue{Field: field, Code: code, Message: message})
}

func (f *Finding) addWarning(field, code, message string) {
	f.Warnings = append(f.Warnings, models.ValidationIssue{Field: field, Code: code, Message: message})
}

// ValidatorFunc validates one proof variant. Pure: same inputs, same finding.
type ValidatorFunc func(p *models.Proof, ch *models.Challenge, sub *models.Submission, cfg Config) Finding

// registry maps each proof type tag to its validator.
var registry = map[models.ProofType]ValidatorFunc{
	models.ProofTypePhoto:            validatePhoto,
	models.ProofTypeReceipt:          validateReceipt,
	models.ProofTypeGPSCheckin:       validateGPSCheckin,
	models.ProofTypeLocationQuestion: validateLocationQuestion,
}

// Validate dispatches to the validator matching the proof's type tag.
// A missing validator or a tag/payload mismatch is a system error for the
// pipeline, not a business finding.
func Validate(p *models.Proof, ch *models.Challenge, sub *models.Submission, cfg Config) (Finding, error) {
	if p == nil {
		return Finding{}, fmt.Errorf("nil proof")
	}
	if _, err := p.Payload(); err != nil {
		return Finding{}, err
	}
	fn, ok := registry[p.Type]
	if !ok {
		return Finding{}, fmt.Errorf("no validator registered for proof type %q", p.Type)
	}
	return fn(p, ch, sub, cfg), nil
}

// validatePhoto checks the photo variant. The signage and interior-view
// flags influence warnings only; they never block a submission.
func validatePhoto(p *models.Proof, _ *models.Challenge, _ *models.Submission, _ Config) Finding {
	var f Finding
	photo := p.Photo

	if strings.TrimSpace(photo.ImageURL) == "" {
		f.addError("proof.photo.image_url", models.CodeMissingPhoto, "photo proof requires an image URL")
		return f
	}
	if !wellFormedImageURL(photo.ImageURL) {
		f.addError("proof.photo.image_url", models.CodeInvalidPhotoData, "photo image URL is malformed")
	}

	if !photo.HasSignage {
		f.addWarning("proof.photo.has_signage", models.CodePhotoQualityWarning,
			"photo does not show location signage; manual review may be slower")
	}
	if !photo.IsInteriorView {
		f.addWarning("proof.photo.is_interior_view", models.CodePhotoQualityWarning,
			"photo is not an interior view")
	}
	return f
}

// validateReceipt checks the receipt variant. The receipt timestamp must be
// within ReceiptMaxAge of the submission time.
func validateReceipt(p *models.Proof, _ *models.Challenge, sub *models.Submission, cfg Config) Finding {
	var f Finding
	receipt := p.Receipt

	if strings.TrimSpace(receipt.ImageURL) == "" {
		f.addError("proof.receipt.image_url", models.CodeMissingReceiptImage, "receipt proof requires an image URL")
	}
	if strings.TrimSpace(receipt.BusinessName) == "" {
		f.addError("proof.receipt.business_name", models.CodeMissingBusinessName, "receipt proof requires a business name")
	}
	if receipt.Timestamp.IsZero() {
		f.addError("proof.receipt.timestamp", models.CodeMissingReceiptTimestamp, "receipt proof requires a timestamp")
		return f
	}

	maxAge := cfg.ReceiptMaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if sub.SubmittedAt.Sub(receipt.Timestamp) > maxAge {
		f.addError("proof.receipt.timestamp", models.CodeReceiptTooOld,
			fmt.Sprintf("receipt is older than %s at submission time", maxAge))
	}
	return f
}

// validateGPSCheckin checks the explicit check-in variant. The check-in
// coordinates must fall inside the payload radius when one is supplied,
// otherwise the challenge verification radius; this is in addition to the
// pipeline's geofence check on the submission GPS fix.
func validateGPSCheckin(p *models.Proof, ch *models.Challenge, _ *models.Submission, _ Config) Finding {
	var f Finding
	checkin := p.GPSCheckin

	if checkin.CheckinTime.IsZero() {
		f.addError("proof.gps_checkin.checkin_time", models.CodeMissingCheckinTime, "gps check-in requires a check-in time")
	}

	if ch != nil {
		radius := ch.Location.VerificationRadius
		if checkin.Radius > 0 {
			radius = checkin.Radius
		}
		dist := geo.DistanceMeters(
			checkin.Coordinates.Latitude, checkin.Coordinates.Longitude,
			ch.Location.Coordinates.Latitude, ch.Location.Coordinates.Longitude,
		)
		if dist > radius {
			f.addError("proof.gps_checkin.coordinates", models.CodeLocationTooFar,
				fmt.Sprintf("check-in is %.0fm from the challenge location (max %.0fm)", dist, radius))
		}
	}
	return f
}

// validateLocationQuestion checks the knowledge-question variant. The answer
// comparison is an exact string match; casing and whitespace count.
func validateLocationQuestion(p *models.Proof, _ *models.Challenge, _ *models.Submission, _ Config) Finding {
	var f Finding
	q := p.LocationQuestion

	if q.Answer == "" {
		f.addError("proof.location_question.answer", models.CodeMissingAnswer, "location question requires an answer")
		return f
	}
	if q.Answer != q.CorrectAnswer {
		f.addError("proof.location_question.answer", models.CodeIncorrectAnswer, "answer does not match")
	}
	return f
}

// wellFormedImageURL reports whether raw parses as an absolute http(s) URL
// with a host.
func wellFormedImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
