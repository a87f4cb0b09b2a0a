// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Plugin is the common part of every stage plugin.
type Plugin interface {
	ID() string
}

// Generator nominates content for a user.
type Generator interface {
	Plugin
	GenerateCandidates(ctx context.Context, user *User) ([]Content, error)
}

// Alterer adds or removes candidates. It returns the set the next alter
// plugin receives.
type Alterer interface {
	Plugin
	AlterCandidates(ctx context.Context, set *CandidateSet, user *User) (*CandidateSet, error)
}

// Scorer attaches its own scores to candidates.
type Scorer interface {
	Plugin
	ScoreCandidates(ctx context.Context, set *CandidateSet, user *User) error
}

// Reranker reorders, inserts or drops candidates after score combination.
type Reranker interface {
	Plugin
	RerankCandidates(ctx context.Context, set *CandidateSet, user *User) (*CandidateSet, error)
}

// ReadinessChecker is implemented by plugins that depend on data prepared
// elsewhere, such as a remote engine.
type ReadinessChecker interface {
	UserRecommendationsReady(ctx context.Context, user *User) (bool, error)
}

// HealthReporter is implemented by plugins that can report their health.
type HealthReporter interface {
	Health(ctx context.Context) (ok bool, description string)
}

// Combiner reduces per-plugin scores to a single score and reason.
type Combiner interface {
	ID() string
	Score(c *Candidate) float64
	Reason(c *Candidate, lang string) (string, error)
}

// Env is what a plugin factory receives.
type Env struct {
	PluginID   string
	Settings   PluginSettings
	Scores     ScoreStore
	Candidates CandidateStore
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Factory builds a stage plugin.
type Factory func(env Env) (Plugin, error)

// Registration is one entry of the static plugin table.
type Registration struct {
	ID          string
	Label       string
	Description string

	// Weights maps each supported stage to its default ordering weight.
	Weights map[Stage]int

	// Disabled turns the plugin off unless configuration enables it.
	Disabled bool

	Factory Factory
}

// CombinerEnv is what a combiner factory receives.
type CombinerEnv struct {
	CombinerID string
	Settings   map[string]PluginSettings
	Reasons    *ReasonWriter
}

// CombinerRegistration is one entry of the static combiner table.
type CombinerRegistration struct {
	ID          string
	Label       string
	Description string
	Factory     func(env CombinerEnv) (Combiner, error)
}

// Base carries the helpers every stage plugin shares. Embed it by value.
type Base struct {
	env Env
}

// NewBase returns a Base for env.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewBase(env Env) Base {
	if env.Now == nil {
		env.Now = time.Now
	}
	return Base{env: env}
}

// ID returns the plugin id.
func (b *Base) ID() string { return b.env.PluginID }

// Logger returns the plugin logger.
func (b *Base) Logger() *zerolog.Logger { return &b.env.Logger }

// Now returns the current time from the injected clock.
func (b *Base) Now() time.Time { return b.env.Now() }

// Settings returns the plugin's overrides.
func (b *Base) Settings() PluginSettings { return b.env.Settings }

// Option returns a plugin specific option or def.
func (b *Base) Option(key, def string) string {
	if v, ok := b.env.Settings.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// NumberCandidates returns how many candidates the plugin should nominate.
func (b *Base) NumberCandidates() int {
	if n := b.env.Settings.NumberCandidates; n > 0 {
		return n
	}
	return DefaultNumberCandidates
}

// Reason returns the configured reason text, or def.
func (b *Base) Reason(def string) string {
	if r := b.env.Settings.Reason; r != "" {
		return r
	}
	return def
}

// Attach writes this plugin's score for c and references it from c.
// A score already attached by this plugin is replaced in place.
func (b *Base) Attach(ctx context.Context, c *Candidate, score float64, reason string, status ScoreStatus) error {
	ps := PluginScore{
		UserID:    c.UserID,
		ContentID: c.ContentID,
		PluginID:  b.ID(),
		Score:     score,
		Reason:    reason,
		Status:    status,
		Updated:   b.Now(),
	}
	if err := b.env.Scores.UpsertScore(ctx, &ps); err != nil {
		return fmt.Errorf("upsert score %s/%d: %w", ps.PluginID, ps.ContentID, err)
	}

	replaced := false
	for i := range c.Scores {
		if c.Scores[i].PluginID == ps.PluginID {
			c.Scores[i] = ps
			replaced = true
			break
		}
	}
	if !replaced {
		c.Scores = append(c.Scores, ps)
	}
	if err := b.env.Candidates.SaveCandidate(ctx, c); err != nil {
		return fmt.Errorf("save candidate %d: %w", c.ContentID, err)
	}
	return nil
}

// Stash stores a processing score during generation. It is confirmed by
// Confirm during the score stage.
func (b *Base) Stash(ctx context.Context, userID, contentID int64, score float64, reason string) error {
	ps := PluginScore{
		UserID:    userID,
		ContentID: contentID,
		PluginID:  b.ID(),
		Score:     score,
		Reason:    reason,
		Status:    ScoreProcessing,
		Updated:   b.Now(),
	}
	if err := b.env.Scores.UpsertScore(ctx, &ps); err != nil {
		return fmt.Errorf("stash score %s/%d: %w", ps.PluginID, contentID, err)
	}
	return nil
}

// Confirm attaches every stashed score of this plugin to its candidate in
// set and marks it ready. Candidates without a stashed score are skipped.
func (b *Base) Confirm(ctx context.Context, set *CandidateSet, user *User) error {
	var errs []error
	for _, c := range set.Items() {
		ps, err := b.env.Scores.GetScore(ctx, user.ID, c.ContentID, b.ID())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ps.Status != ScoreProcessing {
			continue
		}
		if err := b.Attach(ctx, c, ps.Score, ps.Reason, ScoreReady); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Candidate returns the persistent candidate for content with its score
// references cleared and status set to processing.
func (b *Base) Candidate(ctx context.Context, user *User, content Content) (*Candidate, error) {
	c, err := b.env.Candidates.GetOrCreateCandidate(ctx, user.ID, content, b.Now())
	if err != nil {
		return nil, fmt.Errorf("candidate %d: %w", content.ID, err)
	}
	c.Scores = nil
	c.Status = CandidateProcessing
	c.Changed = b.Now()
	if err := b.env.Candidates.SaveCandidate(ctx, c); err != nil {
		return nil, fmt.Errorf("save candidate %d: %w", content.ID, err)
	}
	return c, nil
}

// SaveCandidate persists c.
func (b *Base) SaveCandidate(ctx context.Context, c *Candidate) error {
	return b.env.Candidates.SaveCandidate(ctx, c)
}
