// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/recommend"
	"github.com/tomtom215/recommender/internal/recommend/combiners"
	"github.com/tomtom215/recommender/internal/recommend/memstore"
)

const flagType = "recommendation"

var epoch = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: epoch} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type scored struct {
	score  float64
	reason string
}

// stub is a configurable plugin implementing every stage.
type stub struct {
	recommend.Base

	mu       sync.Mutex
	nominate []recommend.Content
	scores   map[int64]scored
	panicOn  recommend.Stage
	alter    func(set *recommend.CandidateSet) (*recommend.CandidateSet, error)
	rerank   func(set *recommend.CandidateSet) (*recommend.CandidateSet, error)
	delay    time.Duration
	during   func()

	notReady atomic.Bool
	calls    atomic.Int32
}

func (s *stub) set(nominate []recommend.Content, scores map[int64]scored) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nominate = nominate
	s.scores = scores
}

func (s *stub) GenerateCandidates(_ context.Context, _ *recommend.User) ([]recommend.Content, error) {
	s.calls.Add(1)
	if s.panicOn == recommend.StageGenerate {
		panic("generate exploded")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.during != nil {
		s.during()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recommend.Content(nil), s.nominate...), nil
}

func (s *stub) AlterCandidates(_ context.Context, set *recommend.CandidateSet, _ *recommend.User) (*recommend.CandidateSet, error) {
	if s.alter == nil {
		return set, nil
	}
	return s.alter(set)
}

func (s *stub) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, _ *recommend.User) error {
	if s.panicOn == recommend.StageScore {
		panic("score exploded")
	}
	s.mu.Lock()
	scores := s.scores
	s.mu.Unlock()
	var errs []error
	for _, c := range set.Items() {
		sc, ok := scores[c.ContentID]
		if !ok {
			continue
		}
		if err := s.Attach(ctx, c, sc.score, sc.reason, recommend.ScoreReady); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *stub) RerankCandidates(_ context.Context, set *recommend.CandidateSet, _ *recommend.User) (*recommend.CandidateSet, error) {
	if s.rerank == nil {
		return set, nil
	}
	return s.rerank(set)
}

func (s *stub) UserRecommendationsReady(_ context.Context, _ *recommend.User) (bool, error) {
	return !s.notReady.Load(), nil
}

func register(id string, s *stub, weights map[recommend.Stage]int) recommend.Registration {
	return recommend.Registration{
		ID:      id,
		Label:   id,
		Weights: weights,
		Factory: func(env recommend.Env) (recommend.Plugin, error) {
			s.Base = recommend.NewBase(env)
			return s, nil
		},
	}
}

func genScore() map[recommend.Stage]int {
	return map[recommend.Stage]int{recommend.StageGenerate: 0, recommend.StageScore: 0}
}

func item(id int64) recommend.Content {
	return recommend.Content{ID: id, Type: "learn_article", Language: "en", Published: true, Changed: epoch}
}

type recordingEvents struct {
	mu        sync.Mutex
	published []recommend.Flag
	completed []recommend.UserStatus
}

func (r *recordingEvents) RecommendationPublished(_ context.Context, f *recommend.Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, *f)
	return nil
}

func (r *recordingEvents) RunCompleted(_ context.Context, st *recommend.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, *st)
	return nil
}

type fixture struct {
	store  *memstore.Store
	users  *memstore.Directory
	flags  *memstore.Flags
	clock  *clock
	events *recordingEvents
	svc    *recommend.Service
}

func newFixture(t *testing.T, cfg *recommend.Config, regs ...recommend.Registration) *fixture {
	t.Helper()
	return newFixtureWithFlags(t, cfg, memstore.NewFlags(map[string][]string{flagType: nil}), regs...)
}

func newFixtureWithFlags(t *testing.T, cfg *recommend.Config, flags *memstore.Flags, regs ...recommend.Registration) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	f := &fixture{
		store:  memstore.NewStore(),
		users:  memstore.NewDirectory(recommend.User{ID: 1, Language: "en", Active: true}),
		flags:  flags,
		clock:  newClock(),
		events: &recordingEvents{},
	}
	reg, err := recommend.NewRegistry(regs, combiners.Registrations(), cfg, recommend.RegistryDeps{
		Scores:     f.store,
		Candidates: f.store,
		Now:        f.clock.Now,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	var n atomic.Int64
	f.svc, err = recommend.NewService(recommend.Deps{
		Store:    f.store,
		Users:    f.users,
		Flags:    f.flags,
		Events:   f.events,
		Registry: reg,
		Config:   cfg,
		Logger:   zerolog.Nop(),
		Now:      f.clock.Now,
		NewRunID: func() string { return fmt.Sprintf("run-%d", n.Add(1)) },
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return f
}

func (f *fixture) status(t *testing.T, userID int64) *recommend.UserStatus {
	t.Helper()
	st, err := f.store.GetStatus(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetStatus(%d) error = %v", userID, err)
	}
	return st
}

func (f *fixture) flagIDs(t *testing.T, userID int64, pluginID string) []int64 {
	t.Helper()
	flags, err := f.flags.FlagsByPlugin(context.Background(), flagType, userID, pluginID)
	if err != nil {
		t.Fatalf("FlagsByPlugin() error = %v", err)
	}
	out := make([]int64, len(flags))
	for i := range flags {
		out[i] = flags[i].ContentID
	}
	return out
}

// examplePlugins returns two generate+score plugins: A nominates {1, 2}
// and B nominates {2, 3}.
func examplePlugins() (a, b *stub, regs []recommend.Registration) {
	a = &stub{}
	a.set([]recommend.Content{item(1), item(2)}, map[int64]scored{
		1: {0.8, "seen similar"},
		2: {0.3, "seen similar"},
	})
	b = &stub{}
	b.set([]recommend.Content{item(2), item(3)}, map[int64]scored{
		2: {0.5, "popular"},
		3: {0.9, "popular"},
	})
	return a, b, []recommend.Registration{
		register("plugin_a", a, genScore()),
		register("plugin_b", b, genScore()),
	}
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
