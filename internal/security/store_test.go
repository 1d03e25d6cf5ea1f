// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package security

import (
	"testing"
	"time"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	events := []SecurityEvent{
		{ID: "a", Type: EventFraudDetected, Severity: SeverityHigh, Username: "alice", Timestamp: base},
		{ID: "b", Type: EventRapidSubmissions, Severity: SeverityMedium, Username: "bob", Timestamp: base.Add(10 * time.Minute)},
		{ID: "c", Type: EventFraudDetected, Severity: SeverityHigh, Username: "bob", Timestamp: base.Add(20 * time.Minute)},
		{ID: "d", Type: EventValidationFailure, Severity: SeverityLow, Username: "alice", Timestamp: base.Add(30 * time.Minute)},
	}
	for _, e := range events {
		if err := s.Append(e); err != nil {
			t.Fatalf("Append(%s) error: %v", e.ID, err)
		}
	}
	return s
}

func TestMemoryStoreFilters(t *testing.T) {
	s := seedStore(t)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter EventFilter
		want   []string
	}{
		{"all", EventFilter{}, []string{"a", "b", "c", "d"}},
		{"by username", EventFilter{Username: "alice"}, []string{"a", "d"}},
		{"by type", EventFilter{Type: EventFraudDetected}, []string{"a", "c"}},
		{"by severity", EventFilter{Severity: SeverityHigh}, []string{"a", "c"}},
		{"since", EventFilter{Since: base.Add(15 * time.Minute)}, []string{"c", "d"}},
		{"until", EventFilter{Until: base.Add(15 * time.Minute)}, []string{"a", "b"}},
		{"combined", EventFilter{Username: "bob", Type: EventFraudDetected}, []string{"c"}},
		{"newest first limited", EventFilter{NewestFirst: true, Limit: 2}, []string{"d", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.List(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("index %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMemoryStoreGetAndResolve(t *testing.T) {
	s := seedStore(t)

	if _, ok := s.Get("a"); !ok {
		t.Fatal("Get(a) should find the event")
	}
	if _, ok := s.Get("zzz"); ok {
		t.Error("Get(zzz) should miss")
	}

	at := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	if !s.Resolve("a", "operator", "handled", at) {
		t.Fatal("Resolve(a) should succeed")
	}
	e, _ := s.Get("a")
	if !e.Resolved || e.Resolution != "handled" || !e.ResolvedAt.Equal(at) {
		t.Errorf("resolved event = %+v", e)
	}
	if !s.Resolve("a", "other", "again", at.Add(time.Hour)) {
		t.Error("re-resolve should report success")
	}
	e, _ = s.Get("a")
	if e.ResolvedBy != "operator" {
		t.Errorf("ResolvedBy = %s, want first resolver kept", e.ResolvedBy)
	}
	if s.Resolve("zzz", "operator", "", at) {
		t.Error("Resolve(zzz) should fail")
	}
	if s.Count() != 4 {
		t.Errorf("Count = %d, want 4", s.Count())
	}
}
