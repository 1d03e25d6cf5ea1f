// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package security

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wanderwin/proofcheck/internal/fraud"
	"github.com/wanderwin/proofcheck/internal/logging"
	"github.com/wanderwin/proofcheck/internal/metrics"
	"github.com/wanderwin/proofcheck/internal/models"
)

// Config holds the monitoring and alerting thresholds.
type Config struct {
	// AlertWindow is the trailing window evaluated for alert conditions.
	AlertWindow time.Duration

	// FraudAlertThreshold: this many high-severity fraud events in the
	// window raises an alert.
	FraudAlertThreshold int

	// DistinctUserThreshold: qualifying events spanning at least this many
	// users escalate the alert to critical.
	DistinctUserThreshold int

	// MaxUserEvents caps UserSecurityEvents results.
	MaxUserEvents int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		AlertWindow:           time.Hour,
		FraudAlertThreshold:   10,
		DistinctUserThreshold: 5,
		MaxUserEvents:         20,
	}
}

// Notifier delivers alerts out-of-band. Strictly best-effort: delivery
// failures are logged and dropped, never propagated.
type Notifier interface {
	NotifyAlert(alert SecurityAlert) error
}

// acknowledgment is the sticky ack state for a derived alert ID.
type acknowledgment struct {
	by string
	at time.Time
}

// Monitor is the security monitoring façade. All mutating operations are
// fire-and-forget safe; nothing here ever fails a validation request.
type Monitor struct {
	store    EventStore
	notifier Notifier

	mu      sync.RWMutex
	cfg     Config
	flagged map[string]*FlaggedSubmission
	// flaggedOrder preserves insertion order for listings.
	flaggedOrder []string
	// bySubmission maps a submission ID to its flag ID so the review
	// workflow can be driven by either key.
	bySubmission map[string]string
	acks         map[string]acknowledgment
	notified     map[string]bool

	now func() time.Time
}

// NewMonitor creates a monitor over the given event store. The notifier may
// be nil.
func NewMonitor(cfg Config, store EventStore, notifier Notifier) *Monitor {
	return &Monitor{
		store:        store,
		notifier:     notifier,
		cfg:          cfg,
		flagged:      make(map[string]*FlaggedSubmission),
		bySubmission: make(map[string]string),
		acks:         make(map[string]acknowledgment),
		notified:     make(map[string]bool),
		now:          time.Now,
	}
}

// SetNow overrides the clock. Tests only.
func (m *Monitor) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// LogSecurityEvent appends one event with a fresh unique ID and returns it.
// Unknown event type strings are accepted as-is.
func (m *Monitor) LogSecurityEvent(eventType EventType, severity Severity, username, challengeID, submissionID, description string, details map[string]interface{}) SecurityEvent {
	m.mu.RLock()
	nowFn := m.now
	m.mu.RUnlock()

	event := SecurityEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Severity:     severity,
		Username:     username,
		ChallengeID:  challengeID,
		SubmissionID: submissionID,
		Description:  description,
		Details:      details,
		Timestamp:    nowFn(),
	}

	if err := m.store.Append(event); err != nil {
		logging.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to append security event")
		return event
	}
	metrics.SecurityEvents.WithLabelValues(string(eventType), string(severity)).Inc()

	logging.Info().
		Str("event_id", event.ID).
		Str("event_type", string(eventType)).
		Str("severity", string(severity)).
		Str("username", username).
		Msg("security event logged")

	if severity.AtLeast(SeverityHigh) {
		m.maybeNotify()
	}
	return event
}

// LogValidationFailure appends one event per validation error, classified
// through the static code table. Safe on nil inputs.
func (m *Monitor) LogValidationFailure(sub *models.Submission, result models.ValidationResult) {
	if sub == nil || result.IsValid {
		return
	}
	for _, issue := range result.Errors {
		class := classifyCode(issue.Code)
		m.LogSecurityEvent(class.Type, class.Severity, sub.Username, sub.ChallengeID, sub.ID, issue.Message,
			map[string]interface{}{"code": issue.Code, "field": issue.Field})
	}
}

// LogFraudDetection appends one FRAUD_DETECTED event for any non-low
// assessment, plus one event per fired signal through the tag table.
func (m *Monitor) LogFraudDetection(sub *models.Submission, assessment fraud.Result) {
	if sub == nil || assessment.Risk == fraud.RiskLow {
		return
	}

	severity := SeverityMedium
	if assessment.Risk == fraud.RiskHigh {
		severity = SeverityHigh
	}
	m.LogSecurityEvent(EventFraudDetected, severity, sub.Username, sub.ChallengeID, sub.ID,
		fmt.Sprintf("fraud risk %s with confidence %.2f", assessment.Risk, assessment.Confidence),
		map[string]interface{}{
			"risk":               string(assessment.Risk),
			"confidence":         assessment.Confidence,
			"recommended_action": string(assessment.RecommendedAction),
		})

	for _, signal := range assessment.Signals {
		sigSeverity := SeverityMedium
		if signal.Strength == fraud.StrengthStrong {
			sigSeverity = SeverityHigh
		}
		m.LogSecurityEvent(classifySignal(signal.Tag), sigSeverity, sub.Username, sub.ChallengeID, sub.ID,
			signal.Reason, map[string]interface{}{"signal": string(signal.Tag)})
	}
}

// FlagSubmissionForReview queues a submission for manual review and returns
// the flagged record. Every flag also leaves a SUSPICIOUS_PATTERN event in
// the audit log so flagged activity shows up in metrics and alerting.
func (m *Monitor) FlagSubmissionForReview(sub *models.Submission, reason string, risk fraud.RiskLevel, indicators []string, score float64) FlaggedSubmission {
	m.mu.Lock()
	flag := FlaggedSubmission{
		ID:           uuid.New().String(),
		SubmissionID: sub.ID,
		Username:     sub.Username,
		ChallengeID:  sub.ChallengeID,
		Reason:       reason,
		RiskLevel:    risk,
		Indicators:   append([]string(nil), indicators...),
		Score:        score,
		FlaggedAt:    m.now(),
		Decision:     ReviewPending,
	}
	m.flagged[flag.ID] = &flag
	m.flaggedOrder = append(m.flaggedOrder, flag.ID)
	if sub.ID != "" {
		m.bySubmission[sub.ID] = flag.ID
	}
	m.mu.Unlock()

	metrics.FlaggedSubmissions.WithLabelValues(string(ReviewPending)).Inc()
	logging.Info().
		Str("flag_id", flag.ID).
		Str("username", flag.Username).
		Str("risk", string(risk)).
		Msg("submission flagged for review")

	m.LogSecurityEvent(EventSuspiciousPattern, flagSeverity(risk), sub.Username, sub.ChallengeID, sub.ID,
		fmt.Sprintf("submission flagged for review: %s", reason),
		map[string]interface{}{
			"flag_id":    flag.ID,
			"risk":       string(risk),
			"score":      score,
			"indicators": flag.Indicators,
		})
	return flag
}

// flagSeverity maps the fraud risk tier of a flag onto event severity.
func flagSeverity(risk fraud.RiskLevel) Severity {
	switch risk {
	case fraud.RiskHigh:
		return SeverityHigh
	case fraud.RiskMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ReviewFlaggedSubmission applies a review decision. The ID may be either
// the flag ID or the flagged submission's ID. Returns false for unknown IDs
// and for transitions the state machine does not allow; approved and
// rejected are terminal.
func (m *Monitor) ReviewFlaggedSubmission(id string, decision ReviewDecision, reviewedBy, notes string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag, ok := m.resolveFlag(id)
	if !ok {
		return false
	}
	if !legalTransitions[flag.Decision][decision] {
		return false
	}

	at := m.now()
	flag.Decision = decision
	flag.ReviewedBy = reviewedBy
	flag.ReviewedAt = &at
	flag.Notes = notes

	metrics.FlaggedSubmissions.WithLabelValues(string(decision)).Inc()
	return true
}

// FlaggedSubmissions lists flagged records in flag order. An empty decision
// matches all.
func (m *Monitor) FlaggedSubmissions(decision ReviewDecision) []FlaggedSubmission {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]FlaggedSubmission, 0, len(m.flaggedOrder))
	for _, id := range m.flaggedOrder {
		flag := m.flagged[id]
		if decision != "" && flag.Decision != decision {
			continue
		}
		out = append(out, *flag)
	}
	return out
}

// GetFlaggedSubmission returns one flagged record by flag ID or by the
// flagged submission's ID.
func (m *Monitor) GetFlaggedSubmission(id string) (FlaggedSubmission, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	flag, ok := m.resolveFlag(id)
	if !ok {
		return FlaggedSubmission{}, false
	}
	return *flag, true
}

// resolveFlag looks a flag up by flag ID first, then by submission ID.
// Callers hold m.mu.
func (m *Monitor) resolveFlag(id string) (*FlaggedSubmission, bool) {
	if flag, ok := m.flagged[id]; ok {
		return flag, true
	}
	if flagID, ok := m.bySubmission[id]; ok {
		return m.flagged[flagID], true
	}
	return nil, false
}

// GetSecurityEvent returns one event.
func (m *Monitor) GetSecurityEvent(id string) (SecurityEvent, bool) {
	return m.store.Get(id)
}

// SecurityEvents lists events matching the filter.
func (m *Monitor) SecurityEvents(filter EventFilter) []SecurityEvent {
	return m.store.List(filter)
}

// ResolveSecurityEvent marks an event resolved. Returns false for unknown
// IDs.
func (m *Monitor) ResolveSecurityEvent(id, resolvedBy, resolution string) bool {
	m.mu.RLock()
	nowFn := m.now
	m.mu.RUnlock()
	return m.store.Resolve(id, resolvedBy, resolution, nowFn())
}

// UserSecurityEvents returns the user's most recent events, newest first,
// capped at the configured limit.
func (m *Monitor) UserSecurityEvents(username string) []SecurityEvent {
	m.mu.RLock()
	limit := m.cfg.MaxUserEvents
	m.mu.RUnlock()

	return m.store.List(EventFilter{
		Username:    username,
		NewestFirst: true,
		Limit:       limit,
	})
}

// SecurityMetrics derives the metrics snapshot for the timeframe from the
// live event set.
func (m *Monitor) SecurityMetrics(timeframe Timeframe) Metrics {
	m.mu.RLock()
	now := m.now()
	m.mu.RUnlock()

	since := now.Add(-timeframe.Duration())
	events := m.store.List(EventFilter{Since: since, Until: now})

	out := Metrics{
		Timeframe:        timeframe,
		TotalEvents:      len(events),
		EventsByType:     make(map[EventType]int),
		EventsBySeverity: make(map[Severity]int),
	}

	users := make(map[string]int)
	firstSeen := make(map[string]time.Time)
	var resolutionTotal time.Duration

	bucketSize := timeframe.BucketSize()
	buckets := make(map[time.Time]int)

	for _, e := range events {
		out.EventsByType[e.Type]++
		out.EventsBySeverity[e.Severity]++

		if e.Username != "" {
			users[e.Username]++
			if seen, ok := firstSeen[e.Username]; !ok || e.Timestamp.Before(seen) {
				firstSeen[e.Username] = e.Timestamp
			}
		}

		if e.Resolved && e.ResolvedAt != nil {
			out.ResolvedEvents++
			resolutionTotal += e.ResolvedAt.Sub(e.Timestamp)
		}

		buckets[e.Timestamp.Truncate(bucketSize)]++
	}

	out.UniqueUsersAffected = len(users)
	if out.ResolvedEvents > 0 {
		out.AverageResolutionTime = resolutionTotal / time.Duration(out.ResolvedEvents)
	}

	out.TopOffendingUsers = rankUsers(users, firstSeen, 10)
	out.RecentTrends = trendSeries(buckets)
	return out
}

// rankUsers orders users by event count descending; ties break by earliest
// first-seen time so the ranking is deterministic.
func rankUsers(counts map[string]int, firstSeen map[string]time.Time, limit int) []UserCount {
	ranked := make([]UserCount, 0, len(counts))
	for u, c := range counts {
		ranked = append(ranked, UserCount{Username: u, Count: c})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		ti, tj := firstSeen[ranked[i].Username], firstSeen[ranked[j].Username]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return ranked[i].Username < ranked[j].Username
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// trendSeries flattens bucket counts into a time-ordered series.
func trendSeries(buckets map[time.Time]int) []TrendBucket {
	out := make([]TrendBucket, 0, len(buckets))
	for start, count := range buckets {
		out = append(out, TrendBucket{Start: start, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ActiveAlerts recomputes the alert set from the live events and applies
// the sticky acknowledgment state.
func (m *Monitor) ActiveAlerts() []SecurityAlert {
	alerts := m.computeAlerts()

	m.mu.RLock()
	for i := range alerts {
		if ack, ok := m.acks[alerts[i].ID]; ok {
			alerts[i].Acknowledged = true
			alerts[i].AcknowledgedBy = ack.by
			at := ack.at
			alerts[i].AcknowledgedAt = &at
		}
	}
	m.mu.RUnlock()

	unacked := 0
	for _, a := range alerts {
		if !a.Acknowledged {
			unacked++
		}
	}
	metrics.ActiveAlerts.Set(float64(unacked))
	return alerts
}

// AcknowledgeAlert records an acknowledgment for a currently-firing alert.
// Idempotent: re-acknowledging reports success without changing the
// original acknowledger. Returns false for alerts that are not firing.
func (m *Monitor) AcknowledgeAlert(id, acknowledgedBy string) bool {
	firing := false
	for _, a := range m.computeAlerts() {
		if a.ID == id {
			firing = true
			break
		}
	}
	if !firing {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.acks[id]; ok {
		return true
	}
	m.acks[id] = acknowledgment{by: acknowledgedBy, at: m.now()}
	return true
}

// computeAlerts derives the alert set: a surge of high-severity fraud
// events inside the window raises one alert, escalated to critical when the
// events span enough distinct users. The alert ID is derived from the hour
// of the earliest qualifying event so acknowledgments survive recomputation.
func (m *Monitor) computeAlerts() []SecurityAlert {
	m.mu.RLock()
	cfg := m.cfg
	now := m.now()
	m.mu.RUnlock()

	events := m.store.List(EventFilter{
		Type:     EventFraudDetected,
		Severity: SeverityHigh,
		Since:    now.Add(-cfg.AlertWindow),
		Until:    now,
	})
	if len(events) < cfg.FraudAlertThreshold {
		return nil
	}

	earliest := events[0].Timestamp
	users := make(map[string]bool)
	for _, e := range events {
		if e.Timestamp.Before(earliest) {
			earliest = e.Timestamp
		}
		if e.Username != "" {
			users[e.Username] = true
		}
	}

	alert := SecurityAlert{
		ID:            fmt.Sprintf("fraud-surge-%s", earliest.UTC().Format("20060102T15")),
		Title:         "Fraud detection surge",
		Severity:      SeverityHigh,
		TriggeredAt:   earliest,
		EventCount:    len(events),
		DistinctUsers: len(users),
		Description: fmt.Sprintf("%d high-severity fraud events across %d users within %s",
			len(events), len(users), cfg.AlertWindow),
	}
	if len(users) >= cfg.DistinctUserThreshold {
		alert.Severity = SeverityCritical
		alert.ActionRequired = true
		alert.Description += "; widespread pattern, action required"
	}
	return []SecurityAlert{alert}
}

// maybeNotify sends newly-firing unacknowledged alerts to the notifier.
// Best-effort: failures are logged and forgotten.
func (m *Monitor) maybeNotify() {
	if m.notifier == nil {
		return
	}
	for _, alert := range m.ActiveAlerts() {
		if alert.Acknowledged {
			continue
		}

		m.mu.Lock()
		already := m.notified[alert.ID]
		if !already {
			m.notified[alert.ID] = true
		}
		m.mu.Unlock()
		if already {
			continue
		}

		go func(a SecurityAlert) {
			if err := m.notifier.NotifyAlert(a); err != nil {
				logging.Warn().Err(err).Str("alert_id", a.ID).Msg("alert notification failed")
			}
		}(alert)
	}
}
