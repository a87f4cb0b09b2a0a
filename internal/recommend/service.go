// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of the recommendation service.
type Deps struct {
	Store    Store
	Users    UserDirectory
	Flags    FlagSink
	Events   EventSink
	Registry *Registry
	Config   *Config
	Logger   zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time

	// NewRunID defaults to random UUIDs.
	NewRunID func() string
}

// Service drives users through the recommendation pipeline. It is safe
// for concurrent use; runs for the same user are serialized through the
// status row.
type Service struct {
	store    Store
	users    UserDirectory
	flags    FlagSink
	events   EventSink
	registry *Registry
	cfg      *Config
	logger   zerolog.Logger
	now      func() time.Time
	newRunID func() string
}

// NewService validates deps and returns a Service.
//
//nolint:gocritic // deps passed by value for constructor ergonomics
func NewService(deps Deps) (*Service, error) {
	var errs []error
	if deps.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if deps.Users == nil {
		errs = append(errs, errors.New("user directory is required"))
	}
	if deps.Flags == nil {
		errs = append(errs, errors.New("flag sink is required"))
	}
	if deps.Registry == nil {
		errs = append(errs, errors.New("registry is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Events == nil {
		deps.Events = NopEvents{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	return &Service{
		store:    deps.Store,
		users:    deps.Users,
		flags:    deps.Flags,
		events:   deps.Events,
		registry: deps.Registry,
		cfg:      cfg,
		logger:   deps.Logger.With().Str("component", "recommend").Logger(),
		now:      deps.Now,
		newRunID: deps.NewRunID,
	}, nil
}

// Config returns the active configuration.
func (s *Service) Config() *Config { return s.cfg }

// Registry returns the plugin registry.
func (s *Service) Registry() *Registry { return s.registry }
