// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"errors"
	"fmt"
	"time"
)

// DefaultNumberCandidates is the per-plugin generation limit when a plugin
// has no override.
const DefaultNumberCandidates = 5

// Config contains the runtime settings of the pipeline.
type Config struct {
	// CronMode defers non-immediate builds to the queue driver.
	CronMode bool

	// Debug logs per-stage timings for every run.
	Debug bool

	// Freshness is how long a READY result stays current before it is
	// marked STALE. Never disables staleness.
	Freshness Horizon

	// Timeout is the minimum age of a completed run before the user is
	// rebuilt again.
	Timeout time.Duration

	// HistoryRetention controls how long published recommendations are
	// kept in history. Never disables history writes.
	HistoryRetention Horizon

	// Combiner is the id of the active score combiner.
	Combiner string

	// FlagType is the flag type the publisher writes.
	FlagType string

	BuildOnLogin   bool
	BuildWithAjax  bool
	OnRegistration bool
	OnUserUpdate   bool

	// Concurrency bounds the number of users processed in parallel.
	Concurrency int

	// BatchSize is the number of statuses selected per queue batch.
	BatchSize int

	// LeaseTimeout is how long a run may own a status row before another
	// run may take it over.
	LeaseTimeout time.Duration

	// LoginPriority is the queue priority used by login triggered builds.
	LoginPriority int

	// Plugins holds per-plugin overrides keyed by plugin id.
	Plugins map[string]PluginSettings

	// Reasons holds per-language reason templates. The empty key holds the
	// defaults.
	Reasons map[string]ReasonTemplates
}

// PluginSettings are the administrator overrides for one plugin.
type PluginSettings struct {
	// Enabled overrides the registration default when set.
	Enabled *bool

	// Weights overrides the declared per-stage weight.
	Weights map[Stage]int

	// NumberCandidates overrides DefaultNumberCandidates.
	NumberCandidates int

	// Reason overrides the plugin's default reason text.
	Reason string

	// Weight multiplies this plugin's scores in the weighted combiner.
	Weight *float64

	// Options carries plugin specific values.
	Options map[string]string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		CronMode:         true,
		Freshness:        Horizon{Duration: 4 * 7 * 24 * time.Hour},
		Timeout:          time.Hour,
		HistoryRetention: Horizon{Forever: true},
		Combiner:         "sum_score",
		FlagType:         "recommendation",
		BuildOnLogin:     true,
		Concurrency:      4,
		BatchSize:        100,
		LeaseTimeout:     30 * time.Minute,
		LoginPriority:    1,
		Plugins:          make(map[string]PluginSettings),
		Reasons: map[string]ReasonTemplates{
			"": DefaultReasonTemplates(),
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.Freshness.Forever {
		errs = append(errs, errors.New("freshness cannot be forever; use never"))
	}
	if c.FlagType == "" {
		errs = append(errs, errors.New("flag type is required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize))
	}
	if c.LeaseTimeout <= 0 {
		errs = append(errs, errors.New("lease timeout must be positive"))
	}
	for id, p := range c.Plugins {
		if p.NumberCandidates < 0 {
			errs = append(errs, fmt.Errorf("plugin %s: number of candidates must not be negative", id))
		}
		for stage := range p.Weights {
			if !stage.Valid() {
				errs = append(errs, fmt.Errorf("plugin %s: %w: %s", id, ErrInvalidStage, stage))
			}
		}
	}
	for lang, tpl := range c.Reasons {
		if _, err := compileReasonTemplates(tpl); err != nil {
			errs = append(errs, fmt.Errorf("reason templates %q: %w", lang, err))
		}
	}
	return errors.Join(errs...)
}

// PluginSettings returns the overrides for id, never nil maps.
func (c *Config) PluginSettings(id string) PluginSettings {
	p := c.Plugins[id]
	if p.Weights == nil {
		p.Weights = map[Stage]int{}
	}
	if p.Options == nil {
		p.Options = map[string]string{}
	}
	return p
}
