// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package api exposes the verification core over HTTP: submission
// validation, validator configuration, the security event log, derived
// metrics and alerts, and the manual review queue.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/wanderwin/proofcheck/internal/fraud"
	"github.com/wanderwin/proofcheck/internal/logging"
	"github.com/wanderwin/proofcheck/internal/models"
	"github.com/wanderwin/proofcheck/internal/security"
	"github.com/wanderwin/proofcheck/internal/submission"
	"github.com/wanderwin/proofcheck/internal/validation"
)

// Handler bundles the core collaborators behind the HTTP surface.
type Handler struct {
	validator  *submission.Validator
	detector   *fraud.Detector
	monitor    *security.Monitor
	challenges submission.ChallengeStore
	histories  submission.HistoryStore
}

// NewHandler wires the HTTP surface to the core.
func NewHandler(validator *submission.Validator, detector *fraud.Detector, monitor *security.Monitor, challenges submission.ChallengeStore, histories submission.HistoryStore) *Handler {
	return &Handler{
		validator:  validator,
		detector:   detector,
		monitor:    monitor,
		challenges: challenges,
		histories:  histories,
	}
}

// validateRequest is the submission validation request body.
type validateRequest struct {
	ChallengeID string           `json:"challenge_id" validate:"required"`
	Username    string           `json:"username" validate:"required"`
	ProofType   models.ProofType `json:"proof_type" validate:"required"`
	GPS         *models.GPSFix   `json:"gps" validate:"required"`
	Proof       *models.Proof    `json:"proof" validate:"required"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
}

// validateResponse is the submission validation response body.
type validateResponse struct {
	SubmissionID string                    `json:"submission_id"`
	Result       models.ValidationResult   `json:"result"`
	Fraud        *fraud.Result             `json:"fraud,omitempty"`
	Status       models.VerificationStatus `json:"status"`
}

// ValidateSubmission runs one claim through the full pipeline, feeds the
// security monitor, and records the outcome in the user's history.
func (h *Handler) ValidateSubmission(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, "invalid request", verr.Fields())
		return
	}

	ch, err := h.challenges.GetChallenge(req.ChallengeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "challenge not found", nil)
		return
	}
	history, err := h.histories.GetHistory(req.Username)
	if err != nil {
		logging.Error().Err(err).Str("username", req.Username).Msg("history lookup failed")
		respondError(w, http.StatusInternalServerError, "history unavailable", nil)
		return
	}

	submittedAt := time.Now().UTC()
	if req.SubmittedAt != nil {
		submittedAt = *req.SubmittedAt
	}

	sub := &models.Submission{
		ID:          uuid.New().String(),
		ChallengeID: req.ChallengeID,
		Username:    req.Username,
		ProofType:   req.ProofType,
		GPS:         req.GPS,
		SubmittedAt: submittedAt,
	}

	result, assessment := h.validator.ValidateDetailed(sub, req.Proof, ch, history)

	status := models.VerificationStatusApproved
	if !result.IsValid {
		status = models.VerificationStatusRejected
	}

	if !result.IsValid {
		h.monitor.LogValidationFailure(sub, result)
	}
	if assessment != nil && assessment.Risk != fraud.RiskLow {
		h.monitor.LogFraudDetection(sub, *assessment)
		h.monitor.FlagSubmissionForReview(sub, joinOrDefault(assessment.Reasons), assessment.Risk,
			signalTags(assessment.Signals), assessment.Confidence)
		if result.IsValid {
			status = models.VerificationStatusPending
		}
	}
	sub.VerificationStatus = status

	if err := h.histories.RecordSubmission(*sub); err != nil {
		logging.Error().Err(err).Str("username", sub.Username).Msg("failed to record submission")
	}

	respondJSON(w, http.StatusOK, validateResponse{
		SubmissionID: sub.ID,
		Result:       result,
		Fraud:        assessment,
		Status:       status,
	})
}

// signalTags collects the fired signal tags as review indicators.
func signalTags(signals []fraud.Signal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, string(s.Tag))
	}
	return out
}

// joinOrDefault flattens fraud reasons for the review queue.
func joinOrDefault(reasons []string) string {
	if len(reasons) == 0 {
		return "fraud indicators present"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

// challengeRequest is the catalog upsert body.
type challengeRequest struct {
	ID                 string             `json:"id" validate:"required"`
	Latitude           float64            `json:"latitude" validate:"latitude"`
	Longitude          float64            `json:"longitude" validate:"longitude"`
	VerificationRadius float64            `json:"verification_radius" validate:"gt=0"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	ProofTypes         []models.ProofType `json:"proof_types" validate:"min=1"`
}

// UpsertChallenge adds or replaces a catalog entry. Standalone deployments
// only; production catalogs live behind their own store.
func (h *Handler) UpsertChallenge(w http.ResponseWriter, r *http.Request) {
	store, ok := h.challenges.(*submission.MemoryChallengeStore)
	if !ok {
		respondError(w, http.StatusNotImplemented, "catalog is externally managed", nil)
		return
	}

	var req challengeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, "invalid request", verr.Fields())
		return
	}
	for _, pt := range req.ProofTypes {
		if !models.KnownProofType(pt) {
			respondError(w, http.StatusBadRequest, "unknown proof type "+string(pt), nil)
			return
		}
	}

	store.PutChallenge(models.Challenge{
		ID: req.ID,
		Location: models.ChallengeLocation{
			Coordinates:        models.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude},
			VerificationRadius: req.VerificationRadius,
		},
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ProofRequirements: models.ProofRequirements{Types: req.ProofTypes},
		Status:            models.ChallengeStatusActive,
	})
	respondJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// GetValidatorConfig returns the live validation rules.
func (h *Handler) GetValidatorConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.validator.Config())
}

// PutValidatorConfig replaces the live validation rules.
func (h *Handler) PutValidatorConfig(w http.ResponseWriter, r *http.Request) {
	var cfg submission.Config
	if !decodeBody(w, r, &cfg) {
		return
	}
	if err := h.validator.Configure(cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	logging.Info().Msg("validator configuration updated")
	respondJSON(w, http.StatusOK, h.validator.Config())
}

// ListSecurityEvents returns events matching the query filters.
func (h *Handler) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := security.EventFilter{
		Username:    q.Get("username"),
		Type:        security.EventType(q.Get("type")),
		Severity:    security.Severity(q.Get("severity")),
		NewestFirst: true,
		Limit:       parseLimit(q.Get("limit"), 100),
	}
	respondJSON(w, http.StatusOK, h.monitor.SecurityEvents(filter))
}

// GetSecurityEvent returns one event by ID.
func (h *Handler) GetSecurityEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.monitor.GetSecurityEvent(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "event not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// resolveRequest is the event resolution body.
type resolveRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
	Resolution string `json:"resolution"`
}

// ResolveSecurityEvent marks one event resolved.
func (h *Handler) ResolveSecurityEvent(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, "invalid request", verr.Fields())
		return
	}
	if !h.monitor.ResolveSecurityEvent(chi.URLParam(r, "id"), req.ResolvedBy, req.Resolution) {
		respondError(w, http.StatusNotFound, "event not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}

// GetSecurityMetrics returns the derived metrics snapshot.
func (h *Handler) GetSecurityMetrics(w http.ResponseWriter, r *http.Request) {
	timeframe := security.Timeframe(r.URL.Query().Get("timeframe"))
	switch timeframe {
	case "":
		timeframe = security.TimeframeDay
	case security.TimeframeHour, security.TimeframeDay, security.TimeframeWeek:
	default:
		respondError(w, http.StatusBadRequest, "timeframe must be hour, day, or week", nil)
		return
	}
	respondJSON(w, http.StatusOK, h.monitor.SecurityMetrics(timeframe))
}

// GetUserSecurityEvents returns a user's recent events.
func (h *Handler) GetUserSecurityEvents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.UserSecurityEvents(chi.URLParam(r, "username")))
}

// ListAlerts returns the currently-firing alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := h.monitor.ActiveAlerts()
	if alerts == nil {
		alerts = []security.SecurityAlert{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

// acknowledgeRequest is the alert acknowledgment body.
type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by" validate:"required"`
}

// AcknowledgeAlert acknowledges one firing alert.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, "invalid request", verr.Fields())
		return
	}
	if !h.monitor.AcknowledgeAlert(chi.URLParam(r, "id"), req.AcknowledgedBy) {
		respondError(w, http.StatusNotFound, "alert is not firing", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
}

// ListFlagged returns the review queue, optionally filtered by decision.
func (h *Handler) ListFlagged(w http.ResponseWriter, r *http.Request) {
	decision := security.ReviewDecision(r.URL.Query().Get("decision"))
	respondJSON(w, http.StatusOK, h.monitor.FlaggedSubmissions(decision))
}

// reviewRequest is the manual review body.
type reviewRequest struct {
	Decision   security.ReviewDecision `json:"decision" validate:"required,oneof=approved rejected escalated"`
	ReviewedBy string                  `json:"reviewed_by" validate:"required"`
	Notes      string                  `json:"notes"`
}

// ReviewFlagged applies a review decision to one flagged submission.
func (h *Handler) ReviewFlagged(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, "invalid request", verr.Fields())
		return
	}

	id := chi.URLParam(r, "id")
	if !h.monitor.ReviewFlaggedSubmission(id, req.Decision, req.ReviewedBy, req.Notes) {
		if _, ok := h.monitor.GetFlaggedSubmission(id); !ok {
			respondError(w, http.StatusNotFound, "flagged submission not found", nil)
			return
		}
		respondError(w, http.StatusConflict, "decision not allowed from the current state", nil)
		return
	}
	flag, _ := h.monitor.GetFlaggedSubmission(id)
	respondJSON(w, http.StatusOK, flag)
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady is the readiness probe.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decodeBody unmarshals the request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body", nil)
		return false
	}
	return true
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func respondError(w http.ResponseWriter, status int, msg string, fields []validation.FieldError) {
	respondJSON(w, status, errorResponse{Error: msg, Fields: fields})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// parseLimit parses a limit query parameter with a fallback.
func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
