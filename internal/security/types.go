// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package security implements the security monitor: an append-only event
// log fed by validation failures and fraud detections, derived metrics and
// alerts, and a manual review workflow for flagged submissions. Events are
// facts; metrics and alerts are always recomputed from the live event set.
package security

import (
	"time"

	"github.com/wanderwin/proofcheck/internal/fraud"
	"github.com/wanderwin/proofcheck/internal/models"
)

// EventType classifies a security event. Unknown strings are accepted
// as-is so upstream producers can evolve independently.
type EventType string

const (
	EventGPSSpoofing       EventType = "GPS_SPOOFING"
	EventImpossibleTravel  EventType = "IMPOSSIBLE_TRAVEL"
	EventRapidSubmissions  EventType = "RAPID_SUBMISSIONS"
	EventAutomatedBehavior EventType = "AUTOMATED_BEHAVIOR"
	EventFraudDetected     EventType = "FRAUD_DETECTED"
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"
	EventDuplicateClaim    EventType = "DUPLICATE_SUBMISSION"
	EventSuspiciousPattern EventType = "SUSPICIOUS_PATTERN"

	// EventValidationFailure is the fallback for validation error codes
	// with no dedicated event type.
	EventValidationFailure EventType = "VALIDATION_FAILURE"
)

// Severity ranks how serious an event is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for comparisons.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// SecurityEvent is one appended fact. Immutable except for resolution.
type SecurityEvent struct {
	ID           string                 `json:"id"`
	Type         EventType              `json:"type"`
	Severity     Severity               `json:"severity"`
	Username     string                 `json:"username,omitempty"`
	ChallengeID  string                 `json:"challenge_id,omitempty"`
	SubmissionID string                 `json:"submission_id,omitempty"`
	Description  string                 `json:"description"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`

	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
}

// ReviewDecision is the state of a flagged submission in the manual review
// workflow: pending -> approved | rejected | escalated, and
// escalated -> approved | rejected. Approved and rejected are terminal.
type ReviewDecision string

const (
	ReviewPending   ReviewDecision = "pending"
	ReviewApproved  ReviewDecision = "approved"
	ReviewRejected  ReviewDecision = "rejected"
	ReviewEscalated ReviewDecision = "escalated"
)

// legalTransitions encodes the review state machine.
var legalTransitions = map[ReviewDecision]map[ReviewDecision]bool{
	ReviewPending: {
		ReviewApproved:  true,
		ReviewRejected:  true,
		ReviewEscalated: true,
	},
	ReviewEscalated: {
		ReviewApproved: true,
		ReviewRejected: true,
	},
}

// FlaggedSubmission is a submission queued for manual review.
type FlaggedSubmission struct {
	ID           string         `json:"id"`
	SubmissionID string         `json:"submission_id,omitempty"`
	Username     string         `json:"username"`
	ChallengeID  string         `json:"challenge_id"`
	Reason       string         `json:"reason"`
	RiskLevel    fraud.RiskLevel `json:"risk_level"`
	// Indicators are the fraud signal tags that fired; Score is the
	// detector's confidence at flag time.
	Indicators []string  `json:"indicators,omitempty"`
	Score      float64   `json:"score"`
	FlaggedAt  time.Time `json:"flagged_at"`

	Decision   ReviewDecision `json:"decision"`
	ReviewedBy string         `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// SecurityAlert is a derived condition over the recent event set. Alerts
// are recomputed on read; acknowledgment state is kept separately so it
// survives recomputation.
type SecurityAlert struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Severity       Severity   `json:"severity"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	EventCount     int        `json:"event_count"`
	DistinctUsers  int        `json:"distinct_users"`
	ActionRequired bool       `json:"action_required"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Timeframe selects the metrics window.
type Timeframe string

const (
	TimeframeHour Timeframe = "hour"
	TimeframeDay  Timeframe = "day"
	TimeframeWeek Timeframe = "week"
)

// Duration returns the window length. Unknown timeframes default to a day.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeHour:
		return time.Hour
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BucketSize returns the trend bucket width for the timeframe.
func (t Timeframe) BucketSize() time.Duration {
	switch t {
	case TimeframeHour:
		return 5 * time.Minute
	case TimeframeDay:
		return time.Hour
	case TimeframeWeek:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// UserCount pairs a username with its event count for rankings.
type UserCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// TrendBucket is one time bucket in the recent-trend series.
type TrendBucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// Metrics is the derived snapshot over one timeframe.
type Metrics struct {
	Timeframe             Timeframe             `json:"timeframe"`
	TotalEvents           int                   `json:"total_events"`
	EventsByType          map[EventType]int     `json:"events_by_type"`
	EventsBySeverity      map[Severity]int      `json:"events_by_severity"`
	UniqueUsersAffected   int                   `json:"unique_users_affected"`
	TopOffendingUsers     []UserCount           `json:"top_offending_users"`
	RecentTrends          []TrendBucket         `json:"recent_trends"`
	ResolvedEvents        int                   `json:"resolved_events"`
	AverageResolutionTime time.Duration         `json:"average_resolution_time"`
}

// eventClass pairs the event type and severity derived from a validation
// error code.
type eventClass struct {
	Type     EventType
	Severity Severity
}

// codeEventTable maps stable validation error codes to event
// classifications. Codes absent here fall back to VALIDATION_FAILURE/low.
var codeEventTable = map[string]eventClass{
	models.CodeFraudDetected:       {EventFraudDetected, SeverityHigh},
	models.CodeFraudWarning:        {EventSuspiciousPattern, SeverityMedium},
	models.CodeRateLimitExceeded:   {EventRateLimitExceeded, SeverityMedium},
	models.CodeDuplicateSubmission: {EventDuplicateClaim, SeverityMedium},
	models.CodeLocationTooFar:      {EventSuspiciousPattern, SeverityLow},
	models.CodePoorGPSAccuracy:     {EventValidationFailure, SeverityLow},
	models.CodeIncorrectAnswer:     {EventValidationFailure, SeverityLow},
}

// classifyCode returns the event classification for a validation error code.
func classifyCode(code string) eventClass {
	if c, ok := codeEventTable[code]; ok {
		return c
	}
	return eventClass{EventValidationFailure, SeverityLow}
}

// signalEventTable maps fraud signal tags to event types.
var signalEventTable = map[fraud.SignalTag]EventType{
	fraud.SignalGPSSpoofing:      EventGPSSpoofing,
	fraud.SignalImpossibleTravel: EventImpossibleTravel,
	fraud.SignalRapidSubmissions: EventRapidSubmissions,
	fraud.SignalAutomation:       EventAutomatedBehavior,
}

// classifySignal returns the event type for a fraud signal tag. Unknown
// tags map to SUSPICIOUS_PATTERN.
func classifySignal(tag fraud.SignalTag) EventType {
	if t, ok := signalEventTable[tag]; ok {
		return t
	}
	return EventSuspiciousPattern
}
