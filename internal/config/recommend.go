// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package config

import (
	"fmt"

	"github.com/tomtom215/recommender/internal/recommend"
)

// DefaultReasonKey is the reasons entry used when no language matches.
const DefaultReasonKey = "default"

// ToRecommend converts the pipeline section and plugin overrides into the
// pipeline's own configuration.
func (c *Config) ToRecommend() (*recommend.Config, error) {
	freshness, err := recommend.ParseHorizon(c.Recommend.Freshness)
	if err != nil {
		return nil, fmt.Errorf("recommend.freshness: %w", err)
	}
	retention, err := recommend.ParseHorizon(c.Recommend.HistoryRetention)
	if err != nil {
		return nil, fmt.Errorf("recommend.history_retention: %w", err)
	}

	out := recommend.DefaultConfig()
	out.CronMode = c.Recommend.CronMode
	out.Debug = c.Recommend.Debug
	out.Freshness = freshness
	out.Timeout = c.Recommend.Timeout
	out.HistoryRetention = retention
	out.Combiner = c.Recommend.Combiner
	out.FlagType = c.Recommend.FlagType
	out.BuildOnLogin = c.Recommend.BuildOnLogin
	out.BuildWithAjax = c.Recommend.BuildWithAjax
	out.OnRegistration = c.Recommend.OnRegistration
	out.OnUserUpdate = c.Recommend.OnUserUpdate
	out.Concurrency = c.Recommend.Concurrency
	out.BatchSize = c.Recommend.BatchSize
	out.LeaseTimeout = c.Recommend.LeaseTimeout
	out.LoginPriority = c.Recommend.LoginPriority

	for id, p := range c.Plugins {
		s := recommend.PluginSettings{
			Enabled:          p.Enabled,
			Weights:          make(map[recommend.Stage]int, len(p.Weights)),
			NumberCandidates: p.NumberCandidates,
			Reason:           p.Reason,
			Weight:           p.Weight,
			Options:          p.Options,
		}
		for stage, w := range p.Weights {
			s.Weights[recommend.Stage(stage)] = w
		}
		out.Plugins[id] = s
	}

	for lang, tpl := range c.Reasons {
		if lang == DefaultReasonKey {
			lang = ""
		}
		out.Reasons[lang] = tpl
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
