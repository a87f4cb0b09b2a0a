// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package memstore provides in-memory implementations of the recommendation
// storage, user directory and flag sink contracts. It is used
// throughout the tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/recommender/internal/recommend"
)

type candidateKey struct {
	userID    int64
	contentID int64
}

type scoreKey struct {
	userID    int64
	contentID int64
	pluginID  string
}

// Store implements recommend.Store in memory. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	statuses   map[int64]*recommend.UserStatus
	requeue    map[int64]int
	candidates map[candidateKey]*recommend.Candidate
	scores     map[scoreKey]*recommend.PluginScore
	history    []recommend.HistoryEntry
	nextID     int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		statuses:   make(map[int64]*recommend.UserStatus),
		requeue:    make(map[int64]int),
		candidates: make(map[candidateKey]*recommend.Candidate),
		scores:     make(map[scoreKey]*recommend.PluginScore),
	}
}

func copyStatus(st *recommend.UserStatus) *recommend.UserStatus {
	cp := *st
	if st.Updated != nil {
		u := *st.Updated
		cp.Updated = &u
	}
	return &cp
}

func (s *Store) GetStatus(_ context.Context, userID int64) (*recommend.UserStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[userID]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return copyStatus(st), nil
}

// PutStatus overwrites a status record.
func (s *Store) PutStatus(st *recommend.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st.UserID] = copyStatus(st)
}

func (s *Store) EnqueueStatus(_ context.Context, userID int64, priority int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[userID]
	if !ok {
		s.statuses[userID] = &recommend.UserStatus{
			UserID:   userID,
			Status:   recommend.StatusQueued,
			Priority: priority,
			Created:  now,
			Changed:  now,
		}
		return nil
	}
	if st.RunID != "" {
		if p, ok := s.requeue[userID]; !ok || priority > p {
			s.requeue[userID] = priority
		}
		return nil
	}
	st.Status = recommend.StatusQueued
	st.Priority = priority
	st.Changed = now
	return nil
}

func (s *Store) ClaimRun(_ context.Context, userID int64, runID string, now, leaseCutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[userID]
	if !ok {
		return false, recommend.ErrNotFound
	}
	if st.RunID != "" && !st.Changed.Before(leaseCutoff) {
		return false, nil
	}
	st.RunID = runID
	st.Changed = now
	return true, nil
}

func (s *Store) SaveRunStatus(_ context.Context, st *recommend.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.statuses[st.UserID]
	if !ok || cur.RunID != st.RunID {
		return recommend.ErrRunLost
	}
	s.statuses[st.UserID] = copyStatus(st)
	return nil
}

func (s *Store) ReleaseRun(_ context.Context, userID int64, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[userID]
	if !ok || st.RunID != runID {
		return nil
	}
	st.RunID = ""
	if p, ok := s.requeue[userID]; ok {
		st.Status = recommend.StatusQueued
		st.Priority = p
		delete(s.requeue, userID)
	}
	return nil
}

func (s *Store) DueStatuses(_ context.Context, statuses []recommend.Status, updatedBefore time.Time, limit int) ([]recommend.UserStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[recommend.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []recommend.UserStatus
	for _, st := range s.statuses {
		if !want[st.Status] {
			continue
		}
		if st.Updated != nil && !st.Updated.Before(updatedBefore) {
			continue
		}
		out = append(out, *copyStatus(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkStale(_ context.Context, cutoff, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, st := range s.statuses {
		if st.Status == recommend.StatusReady && st.Updated != nil && st.Updated.Before(cutoff) {
			st.Status = recommend.StatusStale
			st.Changed = now
			n++
		}
	}
	return n, nil
}

func (s *Store) ListStatuses(_ context.Context, limit int) ([]recommend.UserStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recommend.UserStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, *copyStatus(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Changed.After(out[j].Changed) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteStatus(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, userID)
	delete(s.requeue, userID)
	return nil
}

func (s *Store) DeleteAllStatuses(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = make(map[int64]*recommend.UserStatus)
	s.requeue = make(map[int64]int)
	return nil
}

func (s *Store) GetOrCreateCandidate(_ context.Context, userID int64, content recommend.Content, now time.Time) (*recommend.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := candidateKey{userID, content.ID}
	c, ok := s.candidates[key]
	if !ok {
		c = &recommend.Candidate{
			UserID:    userID,
			ContentID: content.ID,
			Status:    recommend.CandidateQueued,
			Changed:   now,
		}
		s.candidates[key] = c
	}
	cp := *c
	cp.Content = content
	cp.Scores = append([]recommend.PluginScore(nil), c.Scores...)
	return &cp, nil
}

func (s *Store) SaveCandidate(_ context.Context, c *recommend.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.Scores = append([]recommend.PluginScore(nil), c.Scores...)
	s.candidates[candidateKey{c.UserID, c.ContentID}] = &cp
	return nil
}

// Candidate returns the stored candidate.
func (s *Store) Candidate(userID, contentID int64) (*recommend.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateKey{userID, contentID}]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (s *Store) DeleteCandidates(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.candidates {
		if k.userID == userID {
			delete(s.candidates, k)
		}
	}
	return nil
}

func (s *Store) DeleteAllCandidates(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = make(map[candidateKey]*recommend.Candidate)
	return nil
}

func (s *Store) UpsertScore(_ context.Context, ps *recommend.PluginScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ps
	s.scores[scoreKey{ps.UserID, ps.ContentID, ps.PluginID}] = &cp
	return nil
}

func (s *Store) GetScore(_ context.Context, userID, contentID int64, pluginID string) (*recommend.PluginScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.scores[scoreKey{userID, contentID, pluginID}]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	cp := *ps
	return &cp, nil
}

// ScoreCount returns the number of stored plugin scores.
func (s *Store) ScoreCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scores)
}

func (s *Store) DeleteScores(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.scores {
		if k.userID == userID {
			delete(s.scores, k)
		}
	}
	return nil
}

func (s *Store) DeleteAllScores(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = make(map[scoreKey]*recommend.PluginScore)
	return nil
}

func (s *Store) DeletePluginScores(_ context.Context, pluginID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.scores {
		if k.pluginID == pluginID {
			delete(s.scores, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendHistory(_ context.Context, e *recommend.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *e
	cp.ID = s.nextID
	e.ID = cp.ID
	s.history = append(s.history, cp)
	return nil
}

func (s *Store) PurgeHistory(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.history[:0]
	var n int64
	for _, e := range s.history {
		if e.Created.Before(cutoff) && (limit <= 0 || n < int64(limit)) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.history = kept
	return n, nil
}

func (s *Store) HistoryFor(_ context.Context, userID int64, limit int) ([]recommend.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recommend.HistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].UserID != userID {
			continue
		}
		out = append(out, s.history[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ recommend.Store = (*Store)(nil)
