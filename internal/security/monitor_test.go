// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package security

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wanderwin/proofcheck/internal/fraud"
	"github.com/wanderwin/proofcheck/internal/models"
)

var monitorNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestMonitor() *Monitor {
	m := NewMonitor(DefaultConfig(), NewMemoryStore(), nil)
	m.SetNow(func() time.Time { return monitorNow })
	return m
}

func TestLogSecurityEventAssignsUniqueIDs(t *testing.T) {
	m := newTestMonitor()

	const n = 10
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := m.LogSecurityEvent(EventSuspiciousPattern, SeverityLow,
				fmt.Sprintf("user-%d", i), "ch-1", "", "odd access pattern", nil)
			ids <- e.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if id == "" {
			t.Error("event ID must not be empty")
		}
		if seen[id] {
			t.Errorf("duplicate event ID %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct IDs, want %d", len(seen), n)
	}
	if m.store.(*MemoryStore).Count() != n {
		t.Errorf("store holds %d events, want %d", m.store.(*MemoryStore).Count(), n)
	}
}

func TestLogSecurityEventAcceptsUnknownType(t *testing.T) {
	m := newTestMonitor()
	e := m.LogSecurityEvent("NOVEL_VECTOR", SeverityMedium, "alice", "", "", "new thing", nil)
	if e.Type != "NOVEL_VECTOR" {
		t.Errorf("Type = %s, want NOVEL_VECTOR", e.Type)
	}
	if got, ok := m.GetSecurityEvent(e.ID); !ok || got.Type != "NOVEL_VECTOR" {
		t.Errorf("stored event = %+v, ok=%v", got, ok)
	}
}

func TestLogValidationFailureClassifiesCodes(t *testing.T) {
	m := newTestMonitor()

	result := models.NewValidationResult()
	result.AddError("submission", models.CodeFraudDetected, "fraud")
	result.AddError("username", models.CodeRateLimitExceeded, "too fast")
	result.AddError("challenge_id", models.CodeMissingChallengeID, "missing")

	sub := &models.Submission{ID: "s-7", Username: "alice", ChallengeID: "ch-1"}
	m.LogValidationFailure(sub, result)

	events := m.SecurityEvents(EventFilter{})
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	byType := make(map[EventType]SecurityEvent)
	for _, e := range events {
		byType[e.Type] = e
	}
	if e, ok := byType[EventFraudDetected]; !ok || e.Severity != SeverityHigh {
		t.Errorf("FRAUD_DETECTED event = %+v, ok=%v", e, ok)
	}
	if e, ok := byType[EventRateLimitExceeded]; !ok || e.Severity != SeverityMedium {
		t.Errorf("RATE_LIMIT_EXCEEDED event = %+v, ok=%v", e, ok)
	}
	// Unmapped code falls back to VALIDATION_FAILURE.
	if e, ok := byType[EventValidationFailure]; !ok || e.Severity != SeverityLow {
		t.Errorf("VALIDATION_FAILURE event = %+v, ok=%v", e, ok)
	}
	for _, e := range events {
		if e.SubmissionID != "s-7" {
			t.Errorf("event %s SubmissionID = %q, want s-7", e.Type, e.SubmissionID)
		}
	}
}

func TestLogValidationFailureIgnoresValidResults(t *testing.T) {
	m := newTestMonitor()
	m.LogValidationFailure(&models.Submission{Username: "alice"}, models.NewValidationResult())
	m.LogValidationFailure(nil, models.SystemErrorResult())
	if got := len(m.SecurityEvents(EventFilter{})); got != 0 {
		t.Errorf("got %d events, want 0", got)
	}
}

func TestLogFraudDetection(t *testing.T) {
	m := newTestMonitor()
	sub := &models.Submission{ID: "s-13", Username: "mallory", ChallengeID: "ch-1"}

	assessment := fraud.Result{
		Risk:       fraud.RiskHigh,
		Confidence: 0.75,
		Signals: []fraud.Signal{
			{Tag: fraud.SignalGPSSpoofing, Strength: fraud.StrengthStrong, Reason: "GPS spoofing detected"},
			{Tag: fraud.SignalRapidSubmissions, Strength: fraud.StrengthWeak, Reason: "Rapid submission pattern detected"},
		},
		RecommendedAction: fraud.ActionReject,
	}
	m.LogFraudDetection(sub, assessment)

	events := m.SecurityEvents(EventFilter{})
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3 (one aggregate, one per signal)", len(events))
	}

	byType := make(map[EventType]SecurityEvent)
	for _, e := range events {
		byType[e.Type] = e
	}
	if e := byType[EventFraudDetected]; e.Severity != SeverityHigh {
		t.Errorf("aggregate severity = %s, want high", e.Severity)
	}
	if e := byType[EventGPSSpoofing]; e.Severity != SeverityHigh {
		t.Errorf("spoofing severity = %s, want high", e.Severity)
	}
	if e := byType[EventRapidSubmissions]; e.Severity != SeverityMedium {
		t.Errorf("rapid severity = %s, want medium", e.Severity)
	}
	for _, e := range events {
		if e.SubmissionID != "s-13" {
			t.Errorf("event %s SubmissionID = %q, want s-13", e.Type, e.SubmissionID)
		}
	}
}

func TestLogFraudDetectionSkipsLowRisk(t *testing.T) {
	m := newTestMonitor()
	m.LogFraudDetection(&models.Submission{Username: "alice"}, fraud.Result{Risk: fraud.RiskLow})
	if got := len(m.SecurityEvents(EventFilter{})); got != 0 {
		t.Errorf("got %d events, want 0", got)
	}
}

func TestReviewWorkflowStateMachine(t *testing.T) {
	tests := []struct {
		name  string
		steps []ReviewDecision
		wants []bool
	}{
		{"pending to approved", []ReviewDecision{ReviewApproved}, []bool{true}},
		{"pending to rejected", []ReviewDecision{ReviewRejected}, []bool{true}},
		{"escalate then approve", []ReviewDecision{ReviewEscalated, ReviewApproved}, []bool{true, true}},
		{"escalate then reject", []ReviewDecision{ReviewEscalated, ReviewRejected}, []bool{true, true}},
		{"approved is terminal", []ReviewDecision{ReviewApproved, ReviewRejected}, []bool{true, false}},
		{"rejected is terminal", []ReviewDecision{ReviewRejected, ReviewEscalated}, []bool{true, false}},
		{"cannot re-escalate", []ReviewDecision{ReviewEscalated, ReviewEscalated}, []bool{true, false}},
		{"cannot return to pending", []ReviewDecision{ReviewEscalated, ReviewPending}, []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor()
			flag := m.FlagSubmissionForReview(
				&models.Submission{ID: "s-1", Username: "alice", ChallengeID: "ch-1"},
				"manual spot check", fraud.RiskMedium, nil, 0.6)

			for i, decision := range tt.steps {
				got := m.ReviewFlaggedSubmission(flag.ID, decision, "reviewer", "")
				if got != tt.wants[i] {
					t.Errorf("step %d (%s): got %v, want %v", i, decision, got, tt.wants[i])
				}
			}
		})
	}
}

func TestReviewUnknownFlagReturnsFalse(t *testing.T) {
	m := newTestMonitor()
	if m.ReviewFlaggedSubmission("no-such-id", ReviewApproved, "reviewer", "") {
		t.Error("expected false for unknown flag ID")
	}
}

func TestFlagSubmissionLogsSuspiciousPatternEvent(t *testing.T) {
	m := newTestMonitor()
	sub := &models.Submission{ID: "s-21", Username: "mallory", ChallengeID: "ch-1"}

	m.FlagSubmissionForReview(sub, "spoofing suspected", fraud.RiskHigh,
		[]string{string(fraud.SignalGPSSpoofing)}, 0.75)

	events := m.SecurityEvents(EventFilter{Type: EventSuspiciousPattern})
	if len(events) != 1 {
		t.Fatalf("got %d SUSPICIOUS_PATTERN events, want 1", len(events))
	}
	e := events[0]
	if e.Severity != SeverityHigh {
		t.Errorf("Severity = %s, want high for a high-risk flag", e.Severity)
	}
	if e.SubmissionID != "s-21" || e.Username != "mallory" || e.ChallengeID != "ch-1" {
		t.Errorf("event context = %+v, want submission s-21 by mallory on ch-1", e)
	}
}

func TestFlagRecordsIndicatorsAndScore(t *testing.T) {
	m := newTestMonitor()
	indicators := []string{string(fraud.SignalGPSSpoofing), string(fraud.SignalRapidSubmissions)}
	flag := m.FlagSubmissionForReview(
		&models.Submission{ID: "s-22", Username: "mallory"},
		"multiple signals", fraud.RiskHigh, indicators, 0.9)

	got, ok := m.GetFlaggedSubmission(flag.ID)
	if !ok {
		t.Fatal("flag not found")
	}
	if len(got.Indicators) != 2 || got.Indicators[0] != string(fraud.SignalGPSSpoofing) {
		t.Errorf("Indicators = %v, want %v", got.Indicators, indicators)
	}
	if got.Score != 0.9 {
		t.Errorf("Score = %v, want 0.9", got.Score)
	}
}

func TestReviewBySubmissionID(t *testing.T) {
	m := newTestMonitor()
	flag := m.FlagSubmissionForReview(
		&models.Submission{ID: "s-42", Username: "alice", ChallengeID: "ch-1"},
		"spot check", fraud.RiskMedium, nil, 0.6)

	got, ok := m.GetFlaggedSubmission("s-42")
	if !ok || got.ID != flag.ID {
		t.Fatalf("lookup by submission ID = %+v, ok=%v, want flag %s", got, ok, flag.ID)
	}

	if !m.ReviewFlaggedSubmission("s-42", ReviewApproved, "reviewer", "fine") {
		t.Fatal("review by submission ID must succeed")
	}
	got, _ = m.GetFlaggedSubmission(flag.ID)
	if got.Decision != ReviewApproved {
		t.Errorf("Decision = %s, want approved", got.Decision)
	}

	if m.ReviewFlaggedSubmission("s-unknown", ReviewApproved, "reviewer", "") {
		t.Error("expected false for an unknown submission ID")
	}
}

func TestFlaggedSubmissionsFilter(t *testing.T) {
	m := newTestMonitor()
	f1 := m.FlagSubmissionForReview(&models.Submission{Username: "a"}, "r1", fraud.RiskMedium, nil, 0.65)
	f2 := m.FlagSubmissionForReview(&models.Submission{Username: "b"}, "r2", fraud.RiskHigh, nil, 0.75)
	m.ReviewFlaggedSubmission(f2.ID, ReviewApproved, "reviewer", "looks fine")

	pending := m.FlaggedSubmissions(ReviewPending)
	if len(pending) != 1 || pending[0].ID != f1.ID {
		t.Errorf("pending = %+v, want only %s", pending, f1.ID)
	}
	all := m.FlaggedSubmissions("")
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}
}

func TestResolveSecurityEvent(t *testing.T) {
	m := newTestMonitor()
	e := m.LogSecurityEvent(EventRapidSubmissions, SeverityMedium, "alice", "ch-1", "", "burst", nil)

	if !m.ResolveSecurityEvent(e.ID, "operator", "false positive") {
		t.Fatal("expected resolve to succeed")
	}
	got, _ := m.GetSecurityEvent(e.ID)
	if !got.Resolved || got.ResolvedBy != "operator" {
		t.Errorf("event = %+v, want resolved by operator", got)
	}
	if !m.ResolveSecurityEvent(e.ID, "other", "again") {
		t.Error("re-resolving should report success")
	}
	if m.ResolveSecurityEvent("no-such-id", "operator", "") {
		t.Error("expected false for unknown event ID")
	}
}

func TestUserSecurityEventsNewestFirstCapped(t *testing.T) {
	m := newTestMonitor()
	store := m.store.(*MemoryStore)

	for i := 0; i < 25; i++ {
		_ = store.Append(SecurityEvent{
			ID:        fmt.Sprintf("e-%d", i),
			Type:      EventSuspiciousPattern,
			Severity:  SeverityLow,
			Username:  "alice",
			Timestamp: monitorNow.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = store.Append(SecurityEvent{ID: "other", Username: "bob", Timestamp: monitorNow})

	events := m.UserSecurityEvents("alice")
	if len(events) != 20 {
		t.Fatalf("got %d events, want 20", len(events))
	}
	if events[0].ID != "e-24" {
		t.Errorf("first event = %s, want newest e-24", events[0].ID)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("events not newest-first at index %d", i)
		}
	}
}

func TestSecurityMetrics(t *testing.T) {
	m := newTestMonitor()
	store := m.store.(*MemoryStore)

	// Counts per user: eve=5, dan=3, amy=1, bob=1, cat=4. Expected
	// ranking: eve, cat, dan, then amy before bob (earlier first event).
	counts := []struct {
		user  string
		count int
		first time.Time
	}{
		{"eve", 5, monitorNow.Add(-50 * time.Minute)},
		{"dan", 3, monitorNow.Add(-40 * time.Minute)},
		{"amy", 1, monitorNow.Add(-30 * time.Minute)},
		{"bob", 1, monitorNow.Add(-20 * time.Minute)},
		{"cat", 4, monitorNow.Add(-10 * time.Minute)},
	}
	id := 0
	for _, c := range counts {
		for i := 0; i < c.count; i++ {
			_ = store.Append(SecurityEvent{
				ID:        fmt.Sprintf("m-%d", id),
				Type:      EventRapidSubmissions,
				Severity:  SeverityMedium,
				Username:  c.user,
				Timestamp: c.first.Add(time.Duration(i) * time.Second),
			})
			id++
		}
	}

	// One resolved event 30 minutes after creation.
	resolvedAt := monitorNow.Add(-15 * time.Minute)
	_ = store.Append(SecurityEvent{
		ID:         "resolved-1",
		Type:       EventFraudDetected,
		Severity:   SeverityHigh,
		Username:   "eve",
		Timestamp:  monitorNow.Add(-45 * time.Minute),
		Resolved:   true,
		ResolvedAt: &resolvedAt,
	})

	got := m.SecurityMetrics(TimeframeHour)
	if got.TotalEvents != 15 {
		t.Errorf("TotalEvents = %d, want 15", got.TotalEvents)
	}
	if got.UniqueUsersAffected != 5 {
		t.Errorf("UniqueUsersAffected = %d, want 5", got.UniqueUsersAffected)
	}
	if got.EventsByType[EventRapidSubmissions] != 14 {
		t.Errorf("rapid count = %d, want 14", got.EventsByType[EventRapidSubmissions])
	}
	if got.EventsBySeverity[SeverityHigh] != 1 {
		t.Errorf("high count = %d, want 1", got.EventsBySeverity[SeverityHigh])
	}
	if got.ResolvedEvents != 1 {
		t.Errorf("ResolvedEvents = %d, want 1", got.ResolvedEvents)
	}
	if got.AverageResolutionTime != 30*time.Minute {
		t.Errorf("AverageResolutionTime = %s, want 30m", got.AverageResolutionTime)
	}

	wantOrder := []string{"eve", "cat", "dan", "amy", "bob"}
	if len(got.TopOffendingUsers) != len(wantOrder) {
		t.Fatalf("TopOffendingUsers = %+v, want 5 entries", got.TopOffendingUsers)
	}
	for i, want := range wantOrder {
		if got.TopOffendingUsers[i].Username != want {
			t.Errorf("rank %d = %s, want %s", i, got.TopOffendingUsers[i].Username, want)
		}
	}
	// eve has 6 events total (5 rapid + 1 resolved fraud).
	if got.TopOffendingUsers[0].Count != 6 {
		t.Errorf("top count = %d, want 6", got.TopOffendingUsers[0].Count)
	}

	if len(got.RecentTrends) == 0 {
		t.Error("expected trend buckets")
	}
	for i := 1; i < len(got.RecentTrends); i++ {
		if !got.RecentTrends[i].Start.After(got.RecentTrends[i-1].Start) {
			t.Fatal("trend buckets not time-ordered")
		}
	}
}

func appendHighFraudEvents(store *MemoryStore, n int, distinctUsers bool, at time.Time) {
	for i := 0; i < n; i++ {
		user := "single-user"
		if distinctUsers {
			user = fmt.Sprintf("user-%d", i)
		}
		_ = store.Append(SecurityEvent{
			ID:        uuidLike(i),
			Type:      EventFraudDetected,
			Severity:  SeverityHigh,
			Username:  user,
			Timestamp: at.Add(time.Duration(i) * time.Second),
		})
	}
}

func uuidLike(i int) string { return fmt.Sprintf("alert-ev-%d", i) }

func TestActiveAlertsThresholds(t *testing.T) {
	t.Run("one event raises nothing", func(t *testing.T) {
		m := newTestMonitor()
		appendHighFraudEvents(m.store.(*MemoryStore), 1, true, monitorNow.Add(-10*time.Minute))
		if alerts := m.ActiveAlerts(); len(alerts) != 0 {
			t.Errorf("alerts = %+v, want none", alerts)
		}
	})

	t.Run("nine events raise nothing", func(t *testing.T) {
		m := newTestMonitor()
		appendHighFraudEvents(m.store.(*MemoryStore), 9, true, monitorNow.Add(-10*time.Minute))
		if alerts := m.ActiveAlerts(); len(alerts) != 0 {
			t.Errorf("alerts = %+v, want none", alerts)
		}
	})

	t.Run("surge from one user is high", func(t *testing.T) {
		m := newTestMonitor()
		appendHighFraudEvents(m.store.(*MemoryStore), 12, false, monitorNow.Add(-10*time.Minute))
		alerts := m.ActiveAlerts()
		if len(alerts) != 1 {
			t.Fatalf("alerts = %+v, want one", alerts)
		}
		if alerts[0].Severity != SeverityHigh {
			t.Errorf("Severity = %s, want high", alerts[0].Severity)
		}
		if alerts[0].ActionRequired {
			t.Error("single-user surge must not demand action")
		}
		if alerts[0].EventCount != 12 || alerts[0].DistinctUsers != 1 {
			t.Errorf("EventCount=%d DistinctUsers=%d, want 12/1", alerts[0].EventCount, alerts[0].DistinctUsers)
		}
	})

	t.Run("widespread surge is critical", func(t *testing.T) {
		m := newTestMonitor()
		appendHighFraudEvents(m.store.(*MemoryStore), 12, true, monitorNow.Add(-10*time.Minute))
		alerts := m.ActiveAlerts()
		if len(alerts) != 1 {
			t.Fatalf("alerts = %+v, want one", alerts)
		}
		if alerts[0].Severity != SeverityCritical {
			t.Errorf("Severity = %s, want critical", alerts[0].Severity)
		}
		if !alerts[0].ActionRequired {
			t.Error("widespread surge must demand action")
		}
	})

	t.Run("events outside the window do not count", func(t *testing.T) {
		m := newTestMonitor()
		appendHighFraudEvents(m.store.(*MemoryStore), 12, true, monitorNow.Add(-3*time.Hour))
		if alerts := m.ActiveAlerts(); len(alerts) != 0 {
			t.Errorf("alerts = %+v, want none for stale events", alerts)
		}
	})
}

func TestAcknowledgeAlert(t *testing.T) {
	m := newTestMonitor()
	appendHighFraudEvents(m.store.(*MemoryStore), 12, true, monitorNow.Add(-10*time.Minute))

	alerts := m.ActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("alerts = %+v, want one", alerts)
	}
	id := alerts[0].ID

	if !m.AcknowledgeAlert(id, "operator") {
		t.Fatal("expected acknowledge to succeed")
	}
	if !m.AcknowledgeAlert(id, "someone-else") {
		t.Error("re-acknowledging must report success")
	}

	alerts = m.ActiveAlerts()
	if !alerts[0].Acknowledged {
		t.Error("alert must stay acknowledged across recomputation")
	}
	if alerts[0].AcknowledgedBy != "operator" {
		t.Errorf("AcknowledgedBy = %s, want original operator", alerts[0].AcknowledgedBy)
	}

	if m.AcknowledgeAlert("not-firing", "operator") {
		t.Error("expected false for an alert that is not firing")
	}
}

func TestConcurrentAcknowledge(t *testing.T) {
	m := newTestMonitor()
	appendHighFraudEvents(m.store.(*MemoryStore), 12, true, monitorNow.Add(-10*time.Minute))
	id := m.ActiveAlerts()[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !m.AcknowledgeAlert(id, fmt.Sprintf("op-%d", i)) {
				t.Error("concurrent acknowledge must succeed")
			}
		}(i)
	}
	wg.Wait()

	alerts := m.ActiveAlerts()
	if !alerts[0].Acknowledged {
		t.Error("alert must be acknowledged")
	}
}
