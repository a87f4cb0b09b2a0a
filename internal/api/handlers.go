// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/audit"
	"github.com/tomtom215/recommender/internal/database"
	"github.com/tomtom215/recommender/internal/recommend"
)

// Pipeline is the recommendation service surface the API drives.
type Pipeline interface {
	BuildUserRecommendations(ctx context.Context, userID int64, priority int, now bool) (*recommend.BuildResult, error)
	BuildAllUserRecommendations(ctx context.Context, now bool) (int, error)
	ResetUserRecommendations(ctx context.Context, userID *int64) error
	DeleteUserRecommendations(ctx context.Context, userID *int64) (int, error)
	UserRecommendations(ctx context.Context, userID int64, n int) ([]recommend.Flag, error)
	UserStatus(ctx context.Context, userID int64) (*recommend.UserStatus, error)
	Statuses(ctx context.Context, limit int) ([]recommend.UserStatus, error)
	History(ctx context.Context, userID int64, limit int) ([]recommend.HistoryEntry, error)
	CheckStatus(ctx context.Context) []recommend.PluginStatus
	RemovePluginScores(ctx context.Context, pluginID string) (int64, error)
	ProcessQueue(ctx context.Context, budget time.Duration) (recommend.QueueStats, error)

	OnUserRegistered(ctx context.Context, userID int64) (*recommend.BuildResult, error)
	OnUserUpdated(ctx context.Context, userID int64) (*recommend.BuildResult, error)
	OnUserLogin(ctx context.Context, userID int64) (*recommend.BuildResult, error)
	OnRecommendationsRequested(ctx context.Context, userID int64) (*recommend.BuildResult, error)
}

// CatalogImporter applies catalog batches.
type CatalogImporter interface {
	ImportCatalog(ctx context.Context, b *database.CatalogBatch) error
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports the state of a dependency such as the event sink.
type HealthChecker interface {
	Health(ctx context.Context) (ok bool, description string)
}

// Auditor records administrative actions and serves them back.
type Auditor interface {
	Record(r *http.Request, typ audit.EventType, outcome audit.Outcome, target *audit.Target, description string, metadata map[string]any)
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// HandlerConfig carries the settings handlers need.
type HandlerConfig struct {
	// QueueBudget is used by POST /queue/process when no budget is given.
	QueueBudget time.Duration

	// DefaultLimit applies to list endpoints without a limit parameter.
	DefaultLimit int

	// MaxImportRows bounds the size of one catalog batch.
	MaxImportRows int

	// Version is reported by the health endpoint.
	Version string
}

// DefaultHandlerConfig returns the handler defaults.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		QueueBudget:   50 * time.Second,
		DefaultLimit:  50,
		MaxImportRows: 50000,
		Version:       "dev",
	}
}

// Handler serves the admin API.
type Handler struct {
	pipeline Pipeline
	catalog  CatalogImporter
	db       Pinger
	events   HealthChecker
	audit    Auditor
	cfg      HandlerConfig
	logger   zerolog.Logger
	started  time.Time
}

// HandlerDeps groups the collaborators of a Handler. Catalog, DB, Events
// and Audit may be nil; the matching endpoints then report unavailable.
type HandlerDeps struct {
	Pipeline Pipeline
	Catalog  CatalogImporter
	DB       Pinger
	Events   HealthChecker
	Audit    Auditor
	Config   HandlerConfig
	Logger   zerolog.Logger
}

// NewHandler builds a Handler.
//
//nolint:gocritic // deps is a one-shot value parameter
func NewHandler(deps HandlerDeps) *Handler {
	cfg := deps.Config
	def := DefaultHandlerConfig()
	if cfg.QueueBudget <= 0 {
		cfg.QueueBudget = def.QueueBudget
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxImportRows <= 0 {
		cfg.MaxImportRows = def.MaxImportRows
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	return &Handler{
		pipeline: deps.Pipeline,
		catalog:  deps.Catalog,
		db:       deps.DB,
		events:   deps.Events,
		audit:    deps.Audit,
		cfg:      cfg,
		logger:   deps.Logger,
		started:  time.Now(),
	}
}

// record audits an admin action. A non-nil err marks it failed.
func (h *Handler) record(r *http.Request, typ audit.EventType, err error, target *audit.Target, description string, metadata map[string]any) {
	if h.audit == nil {
		return
	}
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["error"] = err.Error()
	}
	h.audit.Record(r, typ, outcome, target, description, metadata)
}
