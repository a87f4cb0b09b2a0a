// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recommender/config.yaml",
	"/etc/recommender/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are loaded first and
// overridden by the config file and the environment.
func defaultConfig() *Config {
	return &Config{
		Recommend: RecommendConfig{
			CronMode:         true,
			Freshness:        "4 weeks",
			Timeout:          time.Hour,
			HistoryRetention: "forever",
			Combiner:         "sum_score",
			FlagType:         "recommendation",
			BuildOnLogin:     true,
			Concurrency:      4,
			BatchSize:        100,
			LeaseTimeout:     30 * time.Minute,
			LoginPriority:    1,
		},
		Database: DatabaseConfig{
			Path:                   "/data/recommender.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Flags: FlagsConfig{
			Path:       "/data/flags",
			Types:      map[string][]string{"recommendation": {}},
			GCInterval: 10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           256 << 20,
			MaxStore:            1 << 30,
			StreamName:          "RECOMMENDATIONS",
			StreamRetentionDays: 7,
		},
		Scheduler: SchedulerConfig{
			QueueInterval:   time.Minute,
			QueueBudget:     50 * time.Second,
			StaleInterval:   time.Hour,
			CleanupInterval: time.Hour,
			CleanupBudget:   30 * time.Second,
		},
		Server: ServerConfig{
			Port:            8085,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Audit: AuditConfig{
			Enabled:    true,
			Store:      "duckdb",
			Retention:  90 * 24 * time.Hour,
			BufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file
// and the environment, in increasing priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RECOMMEND_TIMEOUT -> recommend.timeout
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated environment values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated string values of the known
// slice fields. Values that are already slices (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower case) to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Pipeline
	"recommend_cron_mode":         "recommend.cron_mode",
	"recommend_debug":             "recommend.debug",
	"recommend_freshness":         "recommend.freshness",
	"recommend_timeout":           "recommend.timeout",
	"recommend_history_retention": "recommend.history_retention",
	"recommend_combiner":          "recommend.combiner",
	"recommend_flag_type":         "recommend.flag_type",
	"recommend_build_on_login":    "recommend.build_on_login",
	"recommend_build_with_ajax":   "recommend.build_with_ajax",
	"recommend_on_registration":   "recommend.on_registration",
	"recommend_on_user_update":    "recommend.on_user_update",
	"recommend_concurrency":       "recommend.concurrency",
	"recommend_batch_size":        "recommend.batch_size",
	"recommend_lease_timeout":     "recommend.lease_timeout",
	"recommend_login_priority":    "recommend.login_priority",

	// Remote engine plugin
	"remote_engine_enabled": "plugins.remote_engine.enabled",
	"remote_engine_url":     "plugins.remote_engine.options.url",
	"remote_engine_rate":    "plugins.remote_engine.options.rate",
	"remote_engine_burst":   "plugins.remote_engine.options.burst",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Flag sink
	"flags_path":        "flags.path",
	"flags_in_memory":   "flags.in_memory",
	"flags_gc_interval": "flags.gc_interval",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_stream_name":    "nats.stream_name",
	"nats_retention_days": "nats.stream_retention_days",

	// Scheduler
	"queue_interval":   "scheduler.queue_interval",
	"queue_budget":     "scheduler.queue_budget",
	"stale_interval":   "scheduler.stale_interval",
	"cleanup_interval": "scheduler.cleanup_interval",
	"cleanup_budget":   "scheduler.cleanup_budget",

	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Audit
	"audit_enabled":       "audit.enabled",
	"audit_store":         "audit.store",
	"audit_retention":     "audit.retention",
	"audit_buffer_size":   "audit.buffer_size",
	"audit_log_to_stdout": "audit.log_to_stdout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
