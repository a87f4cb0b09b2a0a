// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package config loads the recommender configuration with koanf v2.
//
// Sources, lowest priority first:
//  1. Built-in defaults (defaultConfig)
//  2. A YAML file at CONFIG_PATH or one of DefaultConfigPaths
//  3. Environment variables mapped in envMappings
//
// Example config.yaml:
//
//	recommend:
//	  cron_mode: true
//	  freshness: 4 weeks
//	  history_retention: 6 months
//	  combiner: weighted_score
//	plugins:
//	  trending_content:
//	    weight: 0.5
//	  remote_engine:
//	    enabled: true
//	    options:
//	      url: http://engine.internal:8080
//	reasons:
//	  es:
//	    single: "Recomendado porque es {{.Primary}}."
//	    multiple: "Recomendado porque es {{.Primary}} y {{.Secondary}}."
//	flags:
//	  path: /data/flags
//	  types:
//	    recommendation: []
//
// Validate applies the validator tags on the structs (including the custom
// horizon and stage tags) and then the rules spanning several fields.
// ToRecommend converts the result into recommend.Config.
package config
