// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package main is the entry point of the recommender server.

The server builds per-user content recommendations in stages (generate,
alter, score, combine, rerank, publish) and exposes an admin API to drive
and inspect the pipeline.

# Application Architecture

Components run under Suture v4 supervision:

	RootSupervisor ("recommender")
	├── StorageSupervisor ("storage-layer")
	│   ├── FlagGCService (badger value log GC)
	│   └── HistoryCleanupService (retention, checkpointed in badger)
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── QueueService (cron mode batch processing)
	│   └── StaleService (freshness horizon)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (admin API and /metrics)

Initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog with JSON or console output
 3. DuckDB: pipeline state, history and catalog
 4. Badger: published recommendation flags and job checkpoints
 5. Events: in-process channel, or NATS JetStream when enabled
 6. Plugin registry and score combiner
 7. Pipeline service
 8. Supervisor tree

# Configuration

Core environment variables:

	RECOMMEND_CRON_MODE=true        # only build from the queue processor
	RECOMMEND_FRESHNESS="4 weeks"   # READY users become STALE after this
	RECOMMEND_TIMEOUT=1h            # minimum time between runs for a user
	RECOMMEND_COMBINER=sum_score    # or weighted_score
	DUCKDB_PATH=/data/recommender.duckdb
	FLAGS_PATH=/data/flags
	NATS_ENABLED=false
	HTTP_PORT=8085
	LOG_LEVEL=info
	LOG_FORMAT=json

CONFIG_PATH points at an optional YAML file holding per-plugin settings
and reason templates.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
the configured shutdown timeout, background services stop at their next
tick, and the event publisher, flag store and database are closed in that
order.
*/
package main
