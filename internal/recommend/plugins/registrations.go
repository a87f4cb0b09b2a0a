// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package plugins

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/recommender/internal/recommend"
)

// Plugin ids of the built-in stage plugins.
const (
	NewContentID     = "new_content"
	TrendingID       = "trending_content"
	RandomID         = "random_content"
	UserInterestsID  = "user_interests"
	SimilarContentID = "similar_content"
	PadResultsID     = "pad_results"
	ReviewMaterialID = "review_material"
	DiversityID      = "diversity"
	RemoteEngineID   = "remote_engine"
)

// Deps are the collaborators shared by the built-in plugins.
type Deps struct {
	Catalog recommend.Catalog

	// HTTPClient is used by the remote engine. Nil means a client with a
	// 10 second timeout.
	HTTPClient *http.Client

	// Seed seeds the random scores. Zero seeds from the clock.
	Seed int64
}

// Registrations returns the static plugin table in registration order.
// Registration order breaks weight ties and reason ties.
//
//nolint:gocritic // deps passed by value is the construction-time idiom here
func Registrations(deps Deps) []recommend.Registration {
	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := newRandSource(seed)
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return []recommend.Registration{
		{
			ID:          NewContentID,
			Label:       "New Content",
			Description: "Recommends recently created or updated content.",
			Weights:     map[recommend.Stage]int{recommend.StageGenerate: 0, recommend.StageScore: 0},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewNewContent(env, deps.Catalog)
			},
		},
		{
			ID:          TrendingID,
			Label:       "Trending Content",
			Description: "Recommends the most viewed content.",
			Weights:     map[recommend.Stage]int{recommend.StageGenerate: 0, recommend.StageScore: 0},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewTrending(env, deps.Catalog)
			},
		},
		{
			ID:          RandomID,
			Label:       "Random Content",
			Description: "Recommends random published content.",
			Weights:     map[recommend.Stage]int{recommend.StageGenerate: 0, recommend.StageScore: 0},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewRandom(env, deps.Catalog, rnd)
			},
		},
		{
			ID:          UserInterestsID,
			Label:       "User Interests",
			Description: "Recommends uncompleted content in the topics a user follows.",
			Weights:     map[recommend.Stage]int{recommend.StageGenerate: 0, recommend.StageScore: 0},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewUserInterests(env, deps.Catalog, rnd)
			},
		},
		{
			ID:          SimilarContentID,
			Label:       "Similar Content",
			Description: "Recommends content similar to what a user completed.",
			Weights:     map[recommend.Stage]int{recommend.StageGenerate: 0, recommend.StageScore: 0},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewSimilarContent(env, deps.Catalog)
			},
		},
		{
			ID:          PadResultsID,
			Label:       "Pad Results",
			Description: "Adds general content when too few candidates were generated.",
			Weights:     map[recommend.Stage]int{recommend.StageAlter: 0, recommend.StageScore: 0},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewPadResults(env, deps.Catalog, rnd)
			},
		},
		{
			ID:          ReviewMaterialID,
			Label:       "Review Material",
			Description: "Spreads review material across the recommendations.",
			Weights:     map[recommend.Stage]int{recommend.StageRerank: 100},
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewReviewMaterial(env, deps.Catalog, rnd)
			},
		},
		{
			ID:          DiversityID,
			Label:       "Topic Diversity",
			Description: "Reorders recommendations so neighbouring items cover different topics.",
			Weights:     map[recommend.Stage]int{recommend.StageRerank: 200},
			Disabled:    true,
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewDiversity(env)
			},
		},
		{
			ID:          RemoteEngineID,
			Label:       "Remote Engine",
			Description: "Recommends content computed by a remote recommendation engine.",
			Weights:     map[recommend.Stage]int{recommend.StageGenerate: 10, recommend.StageScore: 10},
			Disabled:    true,
			Factory: func(env recommend.Env) (recommend.Plugin, error) {
				return NewRemoteEngine(env, deps.Catalog, client)
			},
		},
	}
}

// randSource is a mutex guarded random source shared by the plugins.
type randSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRandSource(seed int64) *randSource {
	return &randSource{r: rand.New(rand.NewSource(seed))} //nolint:gosec // scores, not secrets
}

// between returns a value in [lo, hi] with millesimal resolution.
func (s *randSource) between(lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	l := int(lo * 1000)
	h := int(hi * 1000)
	s.mu.Lock()
	n := l + s.r.Intn(h-l+1)
	s.mu.Unlock()
	return float64(n) / 1000
}

var (
	_ recommend.Generator = (*NewContent)(nil)
	_ recommend.Scorer    = (*NewContent)(nil)
	_ recommend.Generator = (*Trending)(nil)
	_ recommend.Scorer    = (*Trending)(nil)
	_ recommend.Generator = (*Random)(nil)
	_ recommend.Scorer    = (*Random)(nil)
	_ recommend.Generator = (*UserInterests)(nil)
	_ recommend.Scorer    = (*UserInterests)(nil)
	_ recommend.Generator = (*SimilarContent)(nil)
	_ recommend.Scorer    = (*SimilarContent)(nil)
	_ recommend.Alterer   = (*PadResults)(nil)
	_ recommend.Scorer    = (*PadResults)(nil)
	_ recommend.Reranker  = (*ReviewMaterial)(nil)
	_ recommend.Reranker  = (*Diversity)(nil)
)
