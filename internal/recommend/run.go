// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/metrics"
)

// RunResult describes a completed run.
type RunResult struct {
	RunID      string        `json:"run_id"`
	UserID     int64         `json:"user_id"`
	Retrieved  int           `json:"retrieved"`
	Candidates int           `json:"candidates"`
	Duration   time.Duration `json:"duration"`
}

// run carries the state of one pipeline execution for one user.
type run struct {
	svc    *Service
	user   *User
	status *UserStatus
	logger zerolog.Logger
	start  time.Time
	timing []stageTiming
}

type stageTiming struct {
	stage    string
	duration time.Duration
	count    int
}

// Run executes the full pipeline for userID. When now is false every
// active plugin must report the user ready, otherwise ErrNotReady is
// returned and the status is left as it was.
func (s *Service) Run(ctx context.Context, userID int64, now bool) (*RunResult, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	runID := s.newRunID()
	logger := s.logger.With().Int64("user_id", userID).Str("run_id", runID).Logger()

	if _, err := s.store.GetStatus(ctx, userID); errors.Is(err, ErrNotFound) {
		if err := s.store.EnqueueStatus(ctx, userID, 0, s.now()); err != nil {
			return nil, fmt.Errorf("create status: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load status: %w", err)
	}

	claimed, err := s.store.ClaimRun(ctx, userID, runID, s.now(), s.now().Add(-s.cfg.LeaseTimeout))
	if err != nil {
		return nil, fmt.Errorf("claim run: %w", err)
	}
	if !claimed {
		metrics.RecordRun("busy", 0)
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := s.store.ReleaseRun(context.WithoutCancel(ctx), userID, runID); err != nil {
			logger.Warn().Err(err).Msg("failed to release recommendation run")
		}
	}()

	status, err := s.store.GetStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load status: %w", err)
	}

	if !now {
		ready, err := s.usersReady(ctx, user)
		if err != nil {
			logger.Warn().Err(err).Msg("readiness check failed")
		}
		if !ready {
			metrics.RecordRun("not_ready", 0)
			logger.Debug().Msg("recommendation engines not ready, deferring")
			return nil, ErrNotReady
		}
	}

	r := &run{svc: s, user: user, status: status, logger: logger, start: s.now()}
	res, err := r.execute(ctx)
	if err != nil {
		metrics.RecordRun("failed", 0)
		logger.Error().Err(err).Msg("recommendation run failed")
		return nil, err
	}
	res.RunID = runID
	metrics.RecordRun("ready", res.Duration)
	return res, nil
}

func (r *run) execute(ctx context.Context) (*RunResult, error) {
	s := r.svc

	if err := r.transition(ctx, StatusGenerateCandidate); err != nil {
		return nil, err
	}
	set := r.timed(string(StageGenerate), func() *CandidateSet { return s.generate(ctx, r.user, r.logger) })
	metrics.RecordCandidates(set.Len())

	if err := r.transition(ctx, StatusAlterCandidate); err != nil {
		return nil, err
	}
	set = r.timed(string(StageAlter), func() *CandidateSet { return s.alter(ctx, set, r.user, r.logger) })
	candidates := set.Len()

	if err := r.transition(ctx, StatusScoreCandidate); err != nil {
		return nil, err
	}
	set = r.timed(string(StageScore), func() *CandidateSet { s.score(ctx, set, r.user, r.logger); return set })

	if err := r.transition(ctx, StatusCombineScore); err != nil {
		return nil, err
	}
	combiner, err := s.registry.Combiner()
	if err != nil {
		return nil, err
	}
	set = r.timed("combine_score", func() *CandidateSet { s.combine(ctx, set, r.user, combiner, r.logger); return set })

	if err := r.transition(ctx, StatusRerankCandidate); err != nil {
		return nil, err
	}
	set = r.timed(string(StageRerank), func() *CandidateSet { return s.rerank(ctx, set, r.user, r.logger) })

	var published int
	r.timed("publish", func() *CandidateSet {
		published, err = s.publish(ctx, set, r.user, r.logger)
		return set
	})
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	completed := s.now()
	r.status.Status = StatusReady
	r.status.Updated = &completed
	r.status.Duration = completed.Sub(r.start)
	r.status.Retrieved = published
	r.status.Priority = 0
	r.status.Changed = completed
	if err := s.store.SaveRunStatus(ctx, r.status); err != nil {
		return nil, fmt.Errorf("save status %s: %w", StatusReady, err)
	}

	if s.cfg.Debug {
		r.logTimings(published)
	}
	if err := s.events.RunCompleted(ctx, r.status); err != nil {
		r.logger.Warn().Err(err).Msg("failed to emit run completed event")
	}

	return &RunResult{
		UserID:     r.user.ID,
		Retrieved:  published,
		Candidates: candidates,
		Duration:   r.status.Duration,
	}, nil
}

// transition persists the status about to run. Losing ownership aborts the
// run so the new owner's progress is not overwritten.
func (r *run) transition(ctx context.Context, status Status) error {
	r.status.Status = status
	r.status.Changed = r.svc.now()
	if err := r.svc.store.SaveRunStatus(ctx, r.status); err != nil {
		return fmt.Errorf("save status %s: %w", status, err)
	}
	return nil
}

func (r *run) timed(stage string, fn func() *CandidateSet) *CandidateSet {
	start := time.Now()
	set := fn()
	d := time.Since(start)
	metrics.RecordStage(stage, d)
	r.timing = append(r.timing, stageTiming{stage: stage, duration: d, count: set.Len()})
	return set
}

func (r *run) logTimings(published int) {
	ev := r.logger.Debug().
		Int("recommendations", published).
		Dur("total", r.svc.now().Sub(r.start))
	for _, t := range r.timing {
		ev = ev.Dur(t.stage, t.duration).Int(t.stage+"_count", t.count)
	}
	ev.Msg("recommendation run timings")
}

// usersReady polls every active plugin implementing ReadinessChecker.
func (s *Service) usersReady(ctx context.Context, user *User) (bool, error) {
	var errs []error
	ready := true
	for _, p := range s.registry.Active() {
		rc, ok := p.(ReadinessChecker)
		if !ok {
			continue
		}
		var pluginReady bool
		err := s.invoke(p.ID(), "readiness", func() error {
			var err error
			pluginReady, err = rc.UserRecommendationsReady(ctx, user)
			return err
		})
		if err != nil {
			errs = append(errs, err)
			ready = false
			continue
		}
		if !pluginReady {
			ready = false
		}
	}
	return ready, errors.Join(errs...)
}

// invoke runs one plugin call, turning a panic into an error and recording
// plugin metrics.
func (s *Service) invoke(pluginID, stage string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		kind := ""
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin %s panicked during %s: %v", pluginID, stage, rec)
			kind = "panic"
		} else if err != nil {
			err = fmt.Errorf("plugin %s %s: %w", pluginID, stage, err)
			kind = "error"
		}
		metrics.RecordPluginCall(pluginID, stage, kind, time.Since(start))
	}()
	return fn()
}
