// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/api"
	"github.com/tomtom215/recommender/internal/audit"
	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/database"
	"github.com/tomtom215/recommender/internal/events"
	"github.com/tomtom215/recommender/internal/flags"
	"github.com/tomtom215/recommender/internal/logging"
	"github.com/tomtom215/recommender/internal/recommend"
	"github.com/tomtom215/recommender/internal/recommend/combiners"
	"github.com/tomtom215/recommender/internal/recommend/plugins"
	"github.com/tomtom215/recommender/internal/supervisor"
	"github.com/tomtom215/recommender/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the long-lived components and closes them in reverse order.
type app struct {
	cfg      *config.Config
	db       *database.DB
	flags    *flags.Store
	events   *events.Publisher
	audit    *audit.Logger
	pipeline *recommend.Service
	router   http.Handler
	server   *http.Server
}

// newApp opens storage and builds the pipeline and router. On error every
// component opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				logging.Error().Err(cerr).Msg("Error closing partially initialized components")
			}
			a = nil
		}
	}()

	a.db, err = database.New(&cfg.Database)
	if err != nil {
		return a, fmt.Errorf("open database: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	a.flags, err = flags.Open(&cfg.Flags)
	if err != nil {
		return a, fmt.Errorf("open flag store: %w", err)
	}
	logging.Info().Str("path", cfg.Flags.Path).Bool("in_memory", cfg.Flags.InMemory).Msg("Flag store opened")

	a.events, err = events.New(ctx, &cfg.NATS)
	if err != nil {
		return a, fmt.Errorf("start event publisher: %w", err)
	}

	if cfg.Audit.Enabled {
		a.audit, err = newAuditLogger(ctx, &cfg.Audit, a.db)
		if err != nil {
			return a, fmt.Errorf("audit trail: %w", err)
		}
	}

	rcfg, err := cfg.ToRecommend()
	if err != nil {
		return a, fmt.Errorf("pipeline configuration: %w", err)
	}

	registry, err := recommend.NewRegistry(
		plugins.Registrations(plugins.Deps{Catalog: a.db}),
		combiners.Registrations(),
		rcfg,
		recommend.RegistryDeps{Scores: a.db, Candidates: a.db},
		logging.WithComponent("registry"),
	)
	if err != nil {
		return a, fmt.Errorf("plugin registry: %w", err)
	}

	a.pipeline, err = recommend.NewService(recommend.Deps{
		Store:    a.db,
		Users:    a.db,
		Flags:    a.flags,
		Events:   a.events,
		Registry: registry,
		Config:   rcfg,
		Logger:   logging.WithComponent("pipeline"),
	})
	if err != nil {
		return a, fmt.Errorf("pipeline: %w", err)
	}

	deps := api.HandlerDeps{
		Pipeline: a.pipeline,
		Catalog:  a.db,
		DB:       a.db,
		Events:   a.events,
		Config: api.HandlerConfig{
			QueueBudget: cfg.Scheduler.QueueBudget,
			Version:     version,
		},
		Logger: logging.WithComponent("api"),
	}
	if a.audit != nil {
		deps.Audit = a.audit
	}
	a.router = api.NewRouter(api.NewHandler(deps), api.RouterConfig{
		Middleware: api.ChiMiddlewareConfigFromSecurity(&cfg.Security),
		Logger:     logging.WithComponent("http"),
		Timeout:    cfg.Server.Timeout,
	})

	a.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return a, nil
}

// addServices registers every background service with the tree.
func (a *app) addServices(tree *supervisor.SupervisorTree) {
	cfg := a.cfg
	logger := func(name string) zerolog.Logger { return logging.WithComponent(name) }

	tree.AddStorageService(services.NewFlagGCService(a.flags, cfg.Flags.GCInterval, logger("flag-gc")))
	tree.AddStorageService(services.NewHistoryCleanupService(
		a.pipeline, a.flags, cfg.Scheduler.CleanupInterval, cfg.Scheduler.CleanupBudget, logger("history-cleanup")))

	if a.audit != nil {
		tree.AddStorageService(services.NewAuditRetentionService(a.audit, cfg.Scheduler.CleanupInterval, logger("audit-retention")))
	}

	tree.AddPipelineService(services.NewQueueService(a.pipeline, services.QueueServiceConfig{
		Enabled:  cfg.Recommend.CronMode,
		Interval: cfg.Scheduler.QueueInterval,
		Budget:   cfg.Scheduler.QueueBudget,
	}, logger("queue")))
	tree.AddPipelineService(services.NewStaleService(a.pipeline, cfg.Scheduler.StaleInterval, logger("stale")))

	tree.AddAPIService(services.NewHTTPServerService(a.server, cfg.Server.ShutdownTimeout, logger("http-server")))
}

// Close drains the audit trail, then releases the event publisher, flag
// store and database.
func (a *app) Close() error {
	var errs []error
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit trail: %w", err))
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if a.flags != nil {
		if err := a.flags.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close flag store: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// newAuditLogger opens the configured audit store and starts its writer.
func newAuditLogger(ctx context.Context, cfg *config.AuditConfig, db *database.DB) (*audit.Logger, error) {
	var store audit.Store
	switch cfg.Store {
	case "memory":
		store = audit.NewMemoryStore(0)
	default:
		ds := audit.NewDuckDBStore(db.Conn())
		if err := ds.CreateTable(ctx); err != nil {
			return nil, err
		}
		store = ds
	}
	logging.Info().Str("store", cfg.Store).Dur("retention", cfg.Retention).Msg("Audit trail enabled")
	return audit.NewLogger(store, audit.Config{
		Enabled:     true,
		Retention:   cfg.Retention,
		BufferSize:  cfg.BufferSize,
		LogToStdout: cfg.LogToStdout,
	}), nil
}
