// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// AjaxPriority is the queue priority of builds requested by the client.
const AjaxPriority = 100

// BuildResult reports what BuildUserRecommendations did.
type BuildResult struct {
	UserID int64      `json:"user_id"`
	Ran    bool       `json:"ran"`
	Result *RunResult `json:"result,omitempty"`
}

// BuildUserRecommendations queues userID with priority. The pipeline runs
// synchronously when now is set, or when cron mode is off and the last run
// is older than the recommendation timeout.
func (s *Service) BuildUserRecommendations(ctx context.Context, userID int64, priority int, now bool) (*BuildResult, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	previous, err := s.store.GetStatus(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load status: %w", err)
	}
	if err := s.store.EnqueueStatus(ctx, userID, priority, s.now()); err != nil {
		return nil, fmt.Errorf("queue user %d: %w", userID, err)
	}

	out := &BuildResult{UserID: userID}
	if !now && (s.cfg.CronMode || !s.timedOut(previous)) {
		return out, nil
	}

	res, err := s.Run(ctx, userID, now)
	if err != nil {
		return out, err
	}
	out.Ran = true
	out.Result = res
	return out, nil
}

// timedOut reports whether the last completed run is older than the
// recommendation timeout.
func (s *Service) timedOut(st *UserStatus) bool {
	if st == nil || st.Updated == nil {
		return true
	}
	return st.Updated.Before(s.now().Add(-s.cfg.Timeout))
}

// BuildAllUserRecommendations queues every active user at priority 0 and
// returns how many were queued. Per-user failures are logged.
func (s *Service) BuildAllUserRecommendations(ctx context.Context, now bool) (int, error) {
	ids, err := s.users.ActiveUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}

	queued := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return queued, err
		}
		if err := s.store.EnqueueStatus(ctx, id, 0, s.now()); err != nil {
			s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to queue user")
			continue
		}
		queued++
		if now {
			if _, err := s.Run(ctx, id, true); err != nil {
				s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to build recommendations")
			}
		}
	}
	s.logger.Info().Int("queued", queued).Bool("now", now).Msg("queued all users for recommendations")
	return queued, nil
}

// ResetUserRecommendations deletes candidates, scores and statuses for one
// user, or for everyone when userID is nil. Published flags and history
// are kept.
func (s *Service) ResetUserRecommendations(ctx context.Context, userID *int64) error {
	if userID == nil {
		return errors.Join(
			s.store.DeleteAllCandidates(ctx),
			s.store.DeleteAllScores(ctx),
			s.store.DeleteAllStatuses(ctx),
		)
	}
	return errors.Join(
		s.store.DeleteCandidates(ctx, *userID),
		s.store.DeleteScores(ctx, *userID),
		s.store.DeleteStatus(ctx, *userID),
	)
}

// CheckStatus reports the health of every enabled plugin.
func (s *Service) CheckStatus(ctx context.Context) []PluginStatus {
	return s.registry.Status(ctx)
}

// UserStatus returns the status record of userID.
func (s *Service) UserStatus(ctx context.Context, userID int64) (*UserStatus, error) {
	return s.store.GetStatus(ctx, userID)
}

// Statuses lists up to limit status records.
func (s *Service) Statuses(ctx context.Context, limit int) ([]UserStatus, error) {
	return s.store.ListStatuses(ctx, limit)
}

// HasRecommendations reports whether the user has flags of the
// recommendation type and results that are not stale.
func (s *Service) HasRecommendations(ctx context.Context, userID int64) (bool, error) {
	exists, err := s.flags.FlagTypeExists(ctx, s.cfg.FlagType)
	if err != nil || !exists {
		return false, err
	}
	flags, err := s.flags.FlagsByPlugin(ctx, s.cfg.FlagType, userID, "")
	if err != nil {
		return false, fmt.Errorf("list flags: %w", err)
	}
	if len(flags) == 0 {
		return false, nil
	}
	st, err := s.store.GetStatus(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load status: %w", err)
	}
	return st.Status != StatusStale, nil
}

// UserRecommendations returns up to n of the user's published
// recommendations by descending score. n <= 0 returns all.
func (s *Service) UserRecommendations(ctx context.Context, userID int64, n int) ([]Flag, error) {
	flags, err := s.flags.FlagsByPlugin(ctx, s.cfg.FlagType, userID, EnginePluginID)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	sort.SliceStable(flags, func(i, j int) bool { return flags[i].Score > flags[j].Score })
	if n > 0 && len(flags) > n {
		flags = flags[:n]
	}
	return flags, nil
}

// History returns up to limit history entries of userID, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	return s.store.HistoryFor(ctx, userID, limit)
}

// DeleteUserRecommendations removes engine flags for one user, or for
// every user when userID is nil.
func (s *Service) DeleteUserRecommendations(ctx context.Context, userID *int64) (int, error) {
	if userID == nil {
		n, err := s.flags.UnflagAll(ctx, s.cfg.FlagType, EnginePluginID)
		if err != nil {
			return n, fmt.Errorf("delete recommendations: %w", err)
		}
		return n, nil
	}
	return s.removeEngineFlags(ctx, *userID)
}

// RemovePluginScores deletes every score written by pluginID.
func (s *Service) RemovePluginScores(ctx context.Context, pluginID string) (int64, error) {
	n, err := s.store.DeletePluginScores(ctx, pluginID)
	if err != nil {
		return 0, fmt.Errorf("remove scores of %s: %w", pluginID, err)
	}
	s.logger.Info().Str("plugin", pluginID).Int64("deleted", n).Msg("removed plugin scores")
	return n, nil
}

// OnUserRegistered queues a new account when builds on registration are on.
func (s *Service) OnUserRegistered(ctx context.Context, userID int64) (*BuildResult, error) {
	if !s.cfg.OnRegistration {
		return nil, nil
	}
	return s.BuildUserRecommendations(ctx, userID, 0, false)
}

// OnUserUpdated queues an account whose profile changed when builds on
// user update are on.
func (s *Service) OnUserUpdated(ctx context.Context, userID int64) (*BuildResult, error) {
	if !s.cfg.OnUserUpdate {
		return nil, nil
	}
	return s.BuildUserRecommendations(ctx, userID, 0, false)
}

// OnUserLogin queues the user at login priority when login builds are on
// and the user has no fresh recommendations.
func (s *Service) OnUserLogin(ctx context.Context, userID int64) (*BuildResult, error) {
	if !s.cfg.BuildOnLogin {
		return nil, nil
	}
	has, err := s.HasRecommendations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, nil
	}
	return s.BuildUserRecommendations(ctx, userID, s.cfg.LoginPriority, false)
}

// OnRecommendationsRequested builds immediately for a client that asks for
// recommendations it does not have yet, when ajax builds are on.
func (s *Service) OnRecommendationsRequested(ctx context.Context, userID int64) (*BuildResult, error) {
	if !s.cfg.BuildWithAjax {
		return nil, nil
	}
	has, err := s.HasRecommendations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, nil
	}
	return s.BuildUserRecommendations(ctx, userID, AjaxPriority, true)
}
