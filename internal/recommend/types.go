// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"sort"
	"time"
)

// Stage identifies a pipeline phase that plugins can participate in.
type Stage string

const (
	StageGenerate Stage = "generate_candidates"
	StageAlter    Stage = "alter_candidates"
	StageScore    Stage = "score_candidates"
	StageRerank   Stage = "rerank_candidates"
)

// Stages lists every plugin stage in execution order.
var Stages = []Stage{StageGenerate, StageAlter, StageScore, StageRerank}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageGenerate, StageAlter, StageScore, StageRerank:
		return true
	default:
		return false
	}
}

// Label returns the human readable stage name.
func (s Stage) Label() string {
	switch s {
	case StageGenerate:
		return "Generate Candidates"
	case StageAlter:
		return "Alter Candidates"
	case StageScore:
		return "Score Candidates"
	case StageRerank:
		return "Rerank Candidates"
	default:
		return string(s)
	}
}

// Status is the per-user pipeline state.
type Status string

const (
	StatusQueued            Status = "queued"
	StatusGenerateCandidate Status = "generate_candidate"
	StatusAlterCandidate    Status = "alter_candidate"
	StatusScoreCandidate    Status = "score_candidate"
	StatusCombineScore      Status = "combine_score"
	StatusRerankCandidate   Status = "rerank_candidate"
	StatusReady             Status = "ready"
	StatusStale             Status = "stale"
)

// ProcessableStatuses are the states the queue driver picks up.
// STALE records are rebuilt on the next user interaction instead.
var ProcessableStatuses = []Status{
	StatusQueued,
	StatusGenerateCandidate,
	StatusAlterCandidate,
	StatusScoreCandidate,
	StatusCombineScore,
	StatusRerankCandidate,
}

// InFlight reports whether the status belongs to an unfinished run.
func (s Status) InFlight() bool {
	for _, p := range ProcessableStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Label returns the administrator-facing description of the status.
func (s Status) Label() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusGenerateCandidate:
		return "Generating Candidates"
	case StatusAlterCandidate:
		return "Altering Candidates"
	case StatusScoreCandidate:
		return "Scoring Candidates"
	case StatusCombineScore:
		return "Creating Recommendations"
	case StatusRerankCandidate:
		return "Reranking Candidates"
	case StatusReady:
		return "Ready"
	case StatusStale:
		return "Stale"
	default:
		return string(s)
	}
}

// CandidateStatus tracks a candidate through a single run.
type CandidateStatus string

const (
	CandidateQueued     CandidateStatus = "queued"
	CandidateProcessing CandidateStatus = "processing"
	CandidateReady      CandidateStatus = "ready"
)

// ScoreStatus distinguishes scores stashed during generation from scores
// confirmed during the scoring stage.
type ScoreStatus string

const (
	ScoreProcessing ScoreStatus = "processing"
	ScoreReady      ScoreStatus = "ready"
)

// EnginePluginID tags every flag and history row written by the publisher.
const EnginePluginID = "recommendation_engine"

// User is the subset of an account the pipeline needs.
type User struct {
	ID       int64  `json:"id" validate:"required"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Active   bool   `json:"active"`
}

// Languages returns the language codes content may carry to be shown to u.
func (u *User) Languages() []string {
	langs := []string{"zxx", "und"}
	if u != nil && u.Language != "" {
		langs = append(langs, u.Language)
	}
	return langs
}

// Content is a recommendable item from the catalog.
type Content struct {
	ID        int64     `json:"id" validate:"required"`
	Type      string    `json:"type" validate:"required,max=64"`
	Title     string    `json:"title,omitempty"`
	Language  string    `json:"language,omitempty"`
	TopicID   int64     `json:"topic_id,omitempty"`
	ParentID  int64     `json:"parent_id,omitempty"`
	Published bool      `json:"published"`
	Changed   time.Time `json:"changed"`
}

// UserStatus is the persisted per-user state machine record.
type UserStatus struct {
	UserID    int64         `json:"user_id"`
	Status    Status        `json:"status"`
	Priority  int           `json:"priority"`
	Updated   *time.Time    `json:"updated,omitempty"`
	Duration  time.Duration `json:"duration"`
	Retrieved int           `json:"retrieved"`
	Created   time.Time     `json:"created"`
	Changed   time.Time     `json:"changed"`
	RunID     string        `json:"run_id,omitempty"`
}

// PluginScore is one plugin's opinion of one candidate.
type PluginScore struct {
	UserID    int64       `json:"user_id"`
	ContentID int64       `json:"content_id"`
	PluginID  string      `json:"plugin_id"`
	Score     float64     `json:"score"`
	Reason    string      `json:"reason"`
	Status    ScoreStatus `json:"status"`
	Updated   time.Time   `json:"updated"`
}

// Candidate is a (user, content) pair under consideration. Candidates are
// reused across runs; Scores is rebuilt on every generation.
type Candidate struct {
	UserID    int64           `json:"user_id"`
	ContentID int64           `json:"content_id"`
	Content   Content         `json:"content"`
	Status    CandidateStatus `json:"status"`
	Score     float64         `json:"score"`
	Reason    string          `json:"reason"`
	Scores    []PluginScore   `json:"scores"`
	Changed   time.Time       `json:"changed"`
}

// ScoreRefs returns the plugin ids of the attached scores in attach order.
func (c *Candidate) ScoreRefs() []string {
	refs := make([]string, len(c.Scores))
	for i := range c.Scores {
		refs[i] = c.Scores[i].PluginID
	}
	return refs
}

// HistoryEntry records one published recommendation.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ContentID int64     `json:"content_id"`
	PluginID  string    `json:"plugin_id"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	Created   time.Time `json:"created"`
}

// Flag is a published recommendation as stored by the output sink.
type Flag struct {
	ID          string    `json:"id"`
	FlagType    string    `json:"flag_type"`
	UserID      int64     `json:"user_id"`
	ContentID   int64     `json:"content_id"`
	ContentType string    `json:"content_type,omitempty"`
	PluginID    string    `json:"plugin_id"`
	Reason      string    `json:"reason"`
	Score       float64   `json:"score"`
	Created     time.Time `json:"created"`
}

// PluginStatus is a plugin health report.
type PluginStatus struct {
	PluginID    string `json:"plugin_id"`
	Label       string `json:"label"`
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// CandidateSet is an insertion-ordered set of candidates keyed by content id.
// The first nomination of a content id wins.
type CandidateSet struct {
	order []int64
	items map[int64]*Candidate
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{items: make(map[int64]*Candidate)}
}

// Add inserts c unless its content id is already present.
func (s *CandidateSet) Add(c *Candidate) bool {
	if c == nil {
		return false
	}
	if _, ok := s.items[c.ContentID]; ok {
		return false
	}
	s.items[c.ContentID] = c
	s.order = append(s.order, c.ContentID)
	return true
}

// Put inserts or replaces c, keeping the original position on replace.
func (s *CandidateSet) Put(c *Candidate) {
	if _, ok := s.items[c.ContentID]; !ok {
		s.order = append(s.order, c.ContentID)
	}
	s.items[c.ContentID] = c
}

// Get returns the candidate for contentID.
func (s *CandidateSet) Get(contentID int64) (*Candidate, bool) {
	c, ok := s.items[contentID]
	return c, ok
}

// Has reports whether contentID is in the set.
func (s *CandidateSet) Has(contentID int64) bool {
	_, ok := s.items[contentID]
	return ok
}

// Remove drops contentID from the set.
func (s *CandidateSet) Remove(contentID int64) bool {
	if _, ok := s.items[contentID]; !ok {
		return false
	}
	delete(s.items, contentID)
	for i, id := range s.order {
		if id == contentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns a copy of the set sharing the candidate values.
func (s *CandidateSet) Clone() *CandidateSet {
	out := &CandidateSet{
		order: make([]int64, len(s.order)),
		items: make(map[int64]*Candidate, len(s.items)),
	}
	copy(out.order, s.order)
	for id, c := range s.items {
		out.items[id] = c
	}
	return out
}

// Len returns the number of candidates.
func (s *CandidateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns the content ids in set order.
func (s *CandidateSet) IDs() []int64 {
	ids := make([]int64, len(s.order))
	copy(ids, s.order)
	return ids
}

// Items returns the candidates in set order.
func (s *CandidateSet) Items() []*Candidate {
	out := make([]*Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// SortByScore reorders the set by combined score descending. Ties keep
// their current relative order.
func (s *CandidateSet) SortByScore() {
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.items[s.order[i]].Score > s.items[s.order[j]].Score
	})
}

// Reorder replaces the set order with ids. Unknown ids are ignored and
// candidates missing from ids are dropped.
func (s *CandidateSet) Reorder(ids []int64) {
	order := make([]int64, 0, len(ids))
	keep := make(map[int64]*Candidate, len(ids))
	for _, id := range ids {
		c, ok := s.items[id]
		if !ok {
			continue
		}
		if _, dup := keep[id]; dup {
			continue
		}
		keep[id] = c
		order = append(order, id)
	}
	s.order = order
	s.items = keep
}

// MinMaxScore returns the lowest and highest combined scores in the set.
func (s *CandidateSet) MinMaxScore() (minScore, maxScore float64) {
	for i, id := range s.order {
		score := s.items[id].Score
		if i == 0 || score < minScore {
			minScore = score
		}
		if i == 0 || score > maxScore {
			maxScore = score
		}
	}
	return minScore, maxScore
}
