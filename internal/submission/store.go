// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package submission

import (
	"fmt"
	"sync"

	"github.com/wanderwin/proofcheck/internal/models"
)

// ChallengeStore supplies the challenge catalog. The core never owns
// challenge persistence; production wires an external catalog behind this.
type ChallengeStore interface {
	GetChallenge(id string) (*models.Challenge, error)
}

// HistoryStore supplies per-user submission history and records outcomes.
type HistoryStore interface {
	GetHistory(username string) (*models.UserSubmissionHistory, error)
	RecordSubmission(sub models.Submission) error
}

// MemoryChallengeStore is a mutex-guarded in-memory catalog, used by tests
// and standalone deployments.
type MemoryChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]models.Challenge
}

// NewMemoryChallengeStore creates an empty catalog.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]models.Challenge)}
}

// PutChallenge adds or replaces a challenge.
func (s *MemoryChallengeStore) PutChallenge(ch models.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.ID] = ch
}

// GetChallenge returns the challenge with the given ID.
func (s *MemoryChallengeStore) GetChallenge(id string) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge %q not found", id)
	}
	return &ch, nil
}

// MemoryHistoryStore is a mutex-guarded in-memory submission history.
type MemoryHistoryStore struct {
	mu        sync.RWMutex
	histories map[string]*models.UserSubmissionHistory
}

// NewMemoryHistoryStore creates an empty history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{histories: make(map[string]*models.UserSubmissionHistory)}
}

// GetHistory returns a copy of the user's history. Unknown users get an
// empty history, not an error.
func (s *MemoryHistoryStore) GetHistory(username string) (*models.UserSubmissionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[username]
	if !ok {
		return &models.UserSubmissionHistory{Username: username}, nil
	}

	out := &models.UserSubmissionHistory{
		Username:                h.Username,
		Submissions:             make([]models.Submission, len(h.Submissions)),
		SuspiciousActivityCount: h.SuspiciousActivityCount,
	}
	copy(out.Submissions, h.Submissions)
	if h.LastSubmissionAt != nil {
		at := *h.LastSubmissionAt
		out.LastSubmissionAt = &at
	}
	return out, nil
}

// RecordSubmission appends the submission to the user's history and
// advances the last-submission marker.
func (s *MemoryHistoryStore) RecordSubmission(sub models.Submission) error {
	if sub.Username == "" {
		return fmt.Errorf("submission has no username")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[sub.Username]
	if !ok {
		h = &models.UserSubmissionHistory{Username: sub.Username}
		s.histories[sub.Username] = h
	}
	h.Submissions = append(h.Submissions, sub)
	if h.LastSubmissionAt == nil || sub.SubmittedAt.After(*h.LastSubmissionAt) {
		at := sub.SubmittedAt
		h.LastSubmissionAt = &at
	}
	return nil
}

// MarkSuspicious increments the user's suspicious activity counter.
func (s *MemoryHistoryStore) MarkSuspicious(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.histories[username]; ok {
		h.SuspiciousActivityCount++
		return
	}
	s.histories[username] = &models.UserSubmissionHistory{
		Username:                username,
		SuspiciousActivityCount: 1,
	}
}

var (
	_ ChallengeStore = (*MemoryChallengeStore)(nil)
	_ HistoryStore   = (*MemoryHistoryStore)(nil)
)
