// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package security

import (
	"sort"
	"sync"
	"time"
)

// EventFilter narrows List results. Zero fields match everything.
type EventFilter struct {
	Username string
	Type     EventType
	Severity Severity
	Since    time.Time
	Until    time.Time

	// Limit caps the result count after NewestFirst ordering is applied.
	// Zero means unlimited.
	Limit       int
	NewestFirst bool
}

// EventStore is the append-only security event log. Implementations must be
// safe for concurrent use.
type EventStore interface {
	Append(event SecurityEvent) error
	Get(id string) (SecurityEvent, bool)
	List(filter EventFilter) []SecurityEvent
	Resolve(id, resolvedBy, resolution string, at time.Time) bool
	Count() int
}

// MemoryStore is the in-memory EventStore: a mutex-guarded append-only
// slice with an ID index. Events are never deleted.
type MemoryStore struct {
	mu     sync.RWMutex
	events []SecurityEvent
	byID   map[string]int
}

// NewMemoryStore creates an empty event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

// Append adds an event to the log.
func (s *MemoryStore) Append(event SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[event.ID] = len(s.events)
	s.events = append(s.events, event)
	return nil
}

// Get returns the event with the given ID.
func (s *MemoryStore) Get(id string) (SecurityEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return SecurityEvent{}, false
	}
	return s.events[idx], true
}

// List returns a copy of the events matching the filter.
func (s *MemoryStore) List(filter EventFilter) []SecurityEvent {
	s.mu.RLock()
	matched := make([]SecurityEvent, 0)
	for _, e := range s.events {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	if filter.NewestFirst {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		})
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched
}

// Resolve marks an event resolved. Returns false for unknown IDs; resolving
// an already-resolved event is a no-op that reports success.
func (s *MemoryStore) Resolve(id, resolvedBy, resolution string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return false
	}
	e := &s.events[idx]
	if e.Resolved {
		return true
	}
	e.Resolved = true
	e.ResolvedAt = &at
	e.ResolvedBy = resolvedBy
	e.Resolution = resolution
	return true
}

// Count returns the total number of events.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// matchesFilter applies every set filter field.
func matchesFilter(e SecurityEvent, f EventFilter) bool {
	if f.Username != "" && e.Username != f.Username {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

var _ EventStore = (*MemoryStore)(nil)
