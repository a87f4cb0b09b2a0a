// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package config

import (
	"time"

	"github.com/tomtom215/recommender/internal/recommend"
)

// Config holds all application configuration.
//
// Loading order (see LoadWithKoanf):
//  1. Defaults
//  2. Optional YAML file (CONFIG_PATH or one of DefaultConfigPaths)
//  3. Environment variables listed in envTransformFunc
type Config struct {
	Recommend RecommendConfig                      `koanf:"recommend"`
	Plugins   map[string]PluginConfig              `koanf:"plugins" validate:"dive"`
	Reasons   map[string]recommend.ReasonTemplates `koanf:"reasons"`
	Database  DatabaseConfig                       `koanf:"database"`
	Flags     FlagsConfig                          `koanf:"flags"`
	NATS      NATSConfig                           `koanf:"nats"`
	Scheduler SchedulerConfig                      `koanf:"scheduler"`
	Server    ServerConfig                         `koanf:"server"`
	Security  SecurityConfig                       `koanf:"security"`
	Audit     AuditConfig                          `koanf:"audit"`
	Logging   LoggingConfig                        `koanf:"logging"`
}

// RecommendConfig holds the pipeline settings.
//
// Environment Variables:
//   - RECOMMEND_CRON_MODE: only build from the queue processor (default: true)
//   - RECOMMEND_FRESHNESS: age after which READY users become STALE (default: 4 weeks)
//   - RECOMMEND_TIMEOUT: minimum time between two runs for a user (default: 1h)
//   - RECOMMEND_HISTORY_RETENTION: forever, never, or a horizon (default: forever)
//   - RECOMMEND_COMBINER: score combiner id (default: sum_score)
type RecommendConfig struct {
	CronMode bool `koanf:"cron_mode"`

	// Debug logs the duration of every stage.
	Debug bool `koanf:"debug"`

	Freshness        string        `koanf:"freshness" validate:"horizon"`
	Timeout          time.Duration `koanf:"timeout" validate:"gte=0"`
	HistoryRetention string        `koanf:"history_retention" validate:"horizon"`
	Combiner         string        `koanf:"combiner" validate:"required"`
	FlagType         string        `koanf:"flag_type" validate:"required"`

	BuildOnLogin   bool `koanf:"build_on_login"`
	BuildWithAjax  bool `koanf:"build_with_ajax"`
	OnRegistration bool `koanf:"on_registration"`
	OnUserUpdate   bool `koanf:"on_user_update"`

	Concurrency   int           `koanf:"concurrency" validate:"min=1,max=256"`
	BatchSize     int           `koanf:"batch_size" validate:"min=1,max=10000"`
	LeaseTimeout  time.Duration `koanf:"lease_timeout" validate:"gt=0"`
	LoginPriority int           `koanf:"login_priority" validate:"min=0"`
}

// PluginConfig overrides the registration defaults of one plugin.
//
//	plugins:
//	  diversity:
//	    enabled: true
//	    weights:
//	      rerank_candidates: 50
//	    options:
//	      lambda: "0.6"
type PluginConfig struct {
	Enabled          *bool             `koanf:"enabled"`
	Weights          map[string]int    `koanf:"weights" validate:"dive,keys,stage,endkeys"`
	NumberCandidates int               `koanf:"number_candidates_generated" validate:"min=0"`
	Reason           string            `koanf:"recommendation_reason"`
	Weight           *float64          `koanf:"weight"`
	Options          map[string]string `koanf:"options"`
}

// DatabaseConfig holds the DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads                int  `koanf:"threads" validate:"min=0"`
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`

	// SkipIndexes skips index creation for fast test setup.
	SkipIndexes bool `koanf:"skip_indexes"`
}

// FlagsConfig holds the badger backed flag sink settings.
type FlagsConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`

	// Types maps each flag type to the content types it applies to. An
	// empty list applies to every content type.
	Types map[string][]string `koanf:"types" validate:"required,min=1"`

	// GCInterval is how often badger's value log is garbage collected.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`
}

// NATSConfig holds the event publisher settings. When disabled events are
// published on an in-process channel.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"omitempty,url"`

	// EmbeddedServer starts a NATS server with JetStream in-process.
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory" validate:"gte=0"`
	MaxStore       int64  `koanf:"max_store" validate:"gte=0"`

	StreamName          string `koanf:"stream_name" validate:"required_if=Enabled true"`
	StreamRetentionDays int    `koanf:"stream_retention_days" validate:"min=0"`
}

// SchedulerConfig holds the intervals of the background services.
type SchedulerConfig struct {
	QueueInterval   time.Duration `koanf:"queue_interval" validate:"gt=0"`
	QueueBudget     time.Duration `koanf:"queue_budget" validate:"gt=0"`
	StaleInterval   time.Duration `koanf:"stale_interval" validate:"gt=0"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`
	CleanupBudget   time.Duration `koanf:"cleanup_budget" validate:"gt=0"`
}

// ServerConfig holds the admin HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development staging production"`
}

// SecurityConfig holds rate limiting and CORS settings for the admin API.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// AuditConfig holds the admin action audit trail settings.
//
// Environment Variables:
//   - AUDIT_ENABLED: record admin actions (default: true)
//   - AUDIT_STORE: duckdb or memory (default: duckdb)
//   - AUDIT_RETENTION: how long events are kept, 0 keeps them forever (default: 2160h)
type AuditConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Store       string        `koanf:"store" validate:"oneof=duckdb memory"`
	Retention   time.Duration `koanf:"retention" validate:"gte=0"`
	BufferSize  int           `koanf:"buffer_size" validate:"min=1"`
	LogToStdout bool          `koanf:"log_to_stdout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error"`

	// Format is json (production) or console (development).
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number.
	Caller bool `koanf:"caller"`
}
