// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recommender/internal/metrics"
)

// historyPurgeBatch is the number of history rows removed per delete.
const historyPurgeBatch = 5000

// QueueStats summarizes one ProcessQueue batch.
type QueueStats struct {
	Selected  int `json:"selected"`
	Processed int `json:"processed"`
	Deferred  int `json:"deferred"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
	Busy      int `json:"busy"`
	Skipped   int `json:"skipped"`
}

func (q *QueueStats) asMap() map[string]int {
	return map[string]int{
		"processed": q.Processed,
		"deferred":  q.Deferred,
		"failed":    q.Failed,
		"removed":   q.Removed,
		"busy":      q.Busy,
		"skipped":   q.Skipped,
	}
}

// ProcessQueue drives due users through the pipeline on a bounded worker
// pool, highest priority first. Once budget is spent no further users are
// dispatched; runs already started finish. A budget <= 0 is unlimited.
// Per-user failures are logged and counted, never returned.
func (s *Service) ProcessQueue(ctx context.Context, budget time.Duration) (QueueStats, error) {
	start := time.Now()
	var stats QueueStats

	var deadline time.Time
	if budget > 0 {
		deadline = start.Add(budget)
	}

	due, err := s.store.DueStatuses(ctx, ProcessableStatuses, s.now().Add(-s.cfg.Timeout), s.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("select queued statuses: %w", err)
	}
	stats.Selected = len(due)
	if len(due) == 0 {
		s.logger.Debug().Msg("no users queued for recommendations")
		return stats, nil
	}

	s.logger.Info().Int("count", len(due)).Int("concurrency", s.cfg.Concurrency).Msg("processing recommendation queue")

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for i := range due {
		if !deadline.IsZero() && time.Now().After(deadline) {
			mu.Lock()
			stats.Skipped += len(due) - i
			mu.Unlock()
			s.logger.Info().Int("skipped", len(due)-i).Msg("queue budget exhausted")
			break
		}
		if ctx.Err() != nil {
			mu.Lock()
			stats.Skipped += len(due) - i
			mu.Unlock()
			break
		}

		userID := due[i].UserID
		// Go blocks until a worker slot is free.
		g.Go(func() error {
			result := s.processQueued(ctx, userID)

			mu.Lock()
			defer mu.Unlock()
			switch result {
			case "processed":
				stats.Processed++
			case "deferred":
				stats.Deferred++
			case "removed":
				stats.Removed++
			case "busy":
				stats.Busy++
			default:
				stats.Failed++
			}
			return nil
		})
	}

	// Workers never return errors; per-user failures are counted above.
	_ = g.Wait()

	metrics.RecordQueueBatch(time.Since(start), stats.asMap())
	s.logger.Info().
		Int("processed", stats.Processed).
		Int("deferred", stats.Deferred).
		Int("failed", stats.Failed).
		Int("removed", stats.Removed).
		Int("busy", stats.Busy).
		Int("skipped", stats.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("recommendation queue batch complete")

	return stats, ctx.Err()
}

func (s *Service) processQueued(ctx context.Context, userID int64) string {
	_, err := s.Run(ctx, userID, false)
	switch {
	case err == nil:
		return "processed"
	case errors.Is(err, ErrUserNotFound):
		if err := s.store.DeleteStatus(ctx, userID); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to delete orphaned status")
			return "failed"
		}
		s.logger.Info().Int64("user_id", userID).Msg("removed status of deleted user")
		return "removed"
	case errors.Is(err, ErrNotReady):
		return "deferred"
	case errors.Is(err, ErrRunInProgress):
		return "busy"
	default:
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("queued recommendation run failed")
		return "failed"
	}
}

// MarkStale moves READY users whose results are older than the freshness
// window to STALE. It only applies when recommendations are rebuilt on
// login or through the ajax endpoint.
func (s *Service) MarkStale(ctx context.Context) (int64, error) {
	if !(s.cfg.BuildOnLogin || s.cfg.BuildWithAjax) || s.cfg.Freshness.Never {
		return 0, nil
	}
	now := s.now()
	n, err := s.store.MarkStale(ctx, s.cfg.Freshness.Before(now), now)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}
	metrics.RecordStale(n)
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("marked recommendations stale")
	}
	return n, nil
}

// CleanupHistory removes history beyond the retention horizon in batches,
// stopping once budget is spent. A budget <= 0 is unlimited. Forever and
// Never have no horizon, so nothing is purged; Never only stops new writes.
func (s *Service) CleanupHistory(ctx context.Context, budget time.Duration) (int64, error) {
	retention := s.cfg.HistoryRetention
	if retention.Forever || retention.Never {
		return 0, nil
	}
	cutoff := retention.Before(s.now())

	start := time.Now()
	var total int64
	for {
		n, err := s.store.PurgeHistory(ctx, cutoff, historyPurgeBatch)
		total += n
		if err != nil {
			metrics.RecordHistoryPurged(total)
			return total, fmt.Errorf("purge history: %w", err)
		}
		if n < historyPurgeBatch {
			break
		}
		if budget > 0 && time.Since(start) > budget {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}
	}

	metrics.RecordHistoryPurged(total)
	if total > 0 {
		s.logger.Info().Int64("deleted", total).Time("cutoff", cutoff).Msg("purged recommendation history")
	}
	return total, nil
}
