// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Registry holds the instantiated plugins of the static registration
// table. It is immutable after construction and safe for concurrent use.
type Registry struct {
	cfg       *Config
	logger    zerolog.Logger
	entries   []*registryEntry
	byID      map[string]*registryEntry
	combiners []*combinerEntry
	combiner  Combiner
}

type registryEntry struct {
	reg    Registration
	order  int
	plugin Plugin
	err    error
}

type combinerEntry struct {
	reg      CombinerRegistration
	combiner Combiner
	err      error
}

// RegistryDeps are the collaborators handed to plugin factories.
type RegistryDeps struct {
	Scores     ScoreStore
	Candidates CandidateStore
	Now        func() time.Time
}

// NewRegistry instantiates every registration. A factory that fails, or
// returns a plugin lacking a declared stage's method, is logged and kept
// as a failed entry. Duplicate ids and unknown stages are errors.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRegistry(regs []Registration, combiners []CombinerRegistration, cfg *Config, deps RegistryDeps, logger zerolog.Logger) (*Registry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := &Registry{
		cfg:    cfg,
		logger: logger.With().Str("component", "recommend-registry").Logger(),
		byID:   make(map[string]*registryEntry, len(regs)),
	}

	for i := range regs {
		reg := regs[i]
		if _, dup := r.byID[reg.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, reg.ID)
		}
		for stage := range reg.Weights {
			if !stage.Valid() {
				return nil, fmt.Errorf("plugin %s: %w: %s", reg.ID, ErrInvalidStage, stage)
			}
		}

		e := &registryEntry{reg: reg, order: i}
		e.plugin, e.err = r.instantiate(&reg, deps)
		if e.err != nil {
			r.logger.Error().Err(e.err).Str("plugin", reg.ID).Msg("failed to instantiate recommendation plugin")
		}
		r.entries = append(r.entries, e)
		r.byID[reg.ID] = e
	}

	reasons, err := NewReasonWriter(cfg.Reasons, r.Order)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(combiners))
	for _, reg := range combiners {
		if _, dup := seen[reg.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, reg.ID)
		}
		seen[reg.ID] = struct{}{}

		e := &combinerEntry{reg: reg}
		e.combiner, e.err = reg.Factory(CombinerEnv{
			CombinerID: reg.ID,
			Settings:   cfg.Plugins,
			Reasons:    reasons,
		})
		if e.err == nil && e.combiner == nil {
			e.err = fmt.Errorf("combiner %s: factory returned nil", reg.ID)
		}
		if e.err != nil {
			r.logger.Error().Err(e.err).Str("combiner", reg.ID).Msg("failed to instantiate score combiner")
		}
		r.combiners = append(r.combiners, e)
	}
	r.combiner = r.resolveCombiner()

	return r, nil
}

func (r *Registry) instantiate(reg *Registration, deps RegistryDeps) (p Plugin, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("plugin %s: factory panic: %v", reg.ID, rec)
		}
	}()
	if reg.Factory == nil {
		return nil, fmt.Errorf("plugin %s: no factory", reg.ID)
	}
	p, err = reg.Factory(Env{
		PluginID:   reg.ID,
		Settings:   r.cfg.PluginSettings(reg.ID),
		Scores:     deps.Scores,
		Candidates: deps.Candidates,
		Logger:     r.logger.With().Str("plugin", reg.ID).Logger(),
		Now:        deps.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", reg.ID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("plugin %s: factory returned nil", reg.ID)
	}
	for stage := range reg.Weights {
		if !implementsStage(p, stage) {
			return nil, fmt.Errorf("plugin %s does not implement %s", reg.ID, stage)
		}
	}
	return p, nil
}

func implementsStage(p Plugin, stage Stage) bool {
	var ok bool
	switch stage {
	case StageGenerate:
		_, ok = p.(Generator)
	case StageAlter:
		_, ok = p.(Alterer)
	case StageScore:
		_, ok = p.(Scorer)
	case StageRerank:
		_, ok = p.(Reranker)
	}
	return ok
}

// Enabled reports whether the administrator has the plugin switched on.
func (r *Registry) Enabled(id string) bool {
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	if s, ok := r.cfg.Plugins[id]; ok && s.Enabled != nil {
		return *s.Enabled
	}
	return !e.reg.Disabled
}

// Weight returns the effective weight of plugin id for stage.
func (r *Registry) Weight(id string, stage Stage) int {
	if s, ok := r.cfg.Plugins[id]; ok {
		if w, ok := s.Weights[stage]; ok {
			return w
		}
	}
	if e, ok := r.byID[id]; ok {
		return e.reg.Weights[stage]
	}
	return 0
}

// Order returns the registration index of a plugin id, used as tie-break.
func (r *Registry) Order(id string) int {
	if e, ok := r.byID[id]; ok {
		return e.order
	}
	return math.MaxInt
}

// Plugins returns the instantiated plugins supporting stage in ascending
// weight order, ties by registration order.
func (r *Registry) Plugins(stage Stage, activeOnly bool) ([]Plugin, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStage, stage)
	}

	matched := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if _, ok := e.reg.Weights[stage]; !ok || e.plugin == nil {
			continue
		}
		if activeOnly && !r.Enabled(e.reg.ID) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return r.Weight(matched[i].reg.ID, stage) < r.Weight(matched[j].reg.ID, stage)
	})

	out := make([]Plugin, len(matched))
	for i, e := range matched {
		out[i] = e.plugin
	}
	return out, nil
}

// Active returns every enabled, instantiated plugin in registration order.
func (r *Registry) Active() []Plugin {
	out := make([]Plugin, 0, len(r.entries))
	for _, e := range r.entries {
		if e.plugin != nil && r.Enabled(e.reg.ID) {
			out = append(out, e.plugin)
		}
	}
	return out
}

// Combiner returns the combiner resolved at construction, or
// ErrNoCombiner when none instantiated.
func (r *Registry) Combiner() (Combiner, error) {
	if r.combiner == nil {
		return nil, ErrNoCombiner
	}
	return r.combiner, nil
}

// resolveCombiner picks the configured combiner, falling back to the first
// one that instantiated.
func (r *Registry) resolveCombiner() Combiner {
	for _, e := range r.combiners {
		if e.reg.ID == r.cfg.Combiner && e.combiner != nil {
			return e.combiner
		}
	}
	for _, e := range r.combiners {
		if e.combiner != nil {
			if r.cfg.Combiner != "" {
				r.logger.Warn().
					Str("configured", r.cfg.Combiner).
					Str("fallback", e.reg.ID).
					Msg("configured score combiner unavailable, using fallback")
			}
			return e.combiner
		}
	}
	r.logger.Error().Msg("no score combiner available")
	return nil
}

// Status reports health for every enabled plugin in registration order.
func (r *Registry) Status(ctx context.Context) []PluginStatus {
	out := make([]PluginStatus, 0, len(r.entries))
	for _, e := range r.entries {
		if !r.Enabled(e.reg.ID) {
			continue
		}
		st := PluginStatus{PluginID: e.reg.ID, Label: e.reg.Label, OK: true}
		switch {
		case e.err != nil:
			st.OK = false
			st.Description = e.err.Error()
		default:
			if h, ok := e.plugin.(HealthReporter); ok {
				st.OK, st.Description = h.Health(ctx)
			}
		}
		out = append(out, st)
	}
	return out
}
