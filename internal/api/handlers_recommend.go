// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/recommender/internal/audit"
	"github.com/tomtom215/recommender/internal/logging"
	"github.com/tomtom215/recommender/internal/recommend"
)

// BuildResponse describes the outcome of a build trigger.
type BuildResponse struct {
	UserID  int64                `json:"user_id"`
	Queued  bool                 `json:"queued"`
	Ran     bool                 `json:"ran"`
	Result  *recommend.RunResult `json:"result,omitempty"`
	Message string               `json:"message,omitempty"`
}

// RecommendationsResponse is the body of GET /users/{userID}/recommendations.
type RecommendationsResponse struct {
	UserID          int64                  `json:"user_id"`
	Recommendations []recommend.Flag       `json:"recommendations"`
	Build           *recommend.BuildResult `json:"build,omitempty"`
}

// buildResponse turns a trigger result into a response. A run that was
// deferred because engines are not ready or another worker owns it still
// leaves the user queued, so those errors become accepted responses.
func buildResponse(rw *ResponseWriter, userID int64, res *recommend.BuildResult, err error) {
	if err != nil {
		if res != nil && (errors.Is(err, recommend.ErrNotReady) || errors.Is(err, recommend.ErrRunInProgress)) {
			rw.Accepted(BuildResponse{UserID: userID, Queued: true, Message: err.Error()})
			return
		}
		writePipelineError(rw, err)
		return
	}
	if res == nil {
		rw.Success(BuildResponse{UserID: userID, Message: "trigger disabled or recommendations are fresh"})
		return
	}
	if !res.Ran {
		rw.Accepted(BuildResponse{UserID: userID, Queued: true})
		return
	}
	rw.Success(BuildResponse{UserID: userID, Queued: true, Ran: true, Result: res.Result})
}

// UserRecommendations lists a user's published recommendations. A user
// without fresh recommendations gets an immediate build first when the
// client build trigger is enabled.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	limit, ok := h.limit(rw, r)
	if !ok {
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	build, err := h.pipeline.OnRecommendationsRequested(ctx, userID)
	if err != nil && !errors.Is(err, recommend.ErrNotReady) && !errors.Is(err, recommend.ErrRunInProgress) {
		writePipelineError(rw, err)
		return
	}

	flags, err := h.pipeline.UserRecommendations(ctx, userID, limit)
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	if flags == nil {
		flags = []recommend.Flag{}
	}
	rw.Success(RecommendationsResponse{UserID: userID, Recommendations: flags, Build: build})
}

// BuildUser queues one user and optionally runs the pipeline now.
func (h *Handler) BuildUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var req BuildRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDecodeError(rw, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	res, err := h.pipeline.BuildUserRecommendations(ctx, userID, req.Priority, req.Now)
	buildResponse(rw, userID, res, err)
}

// DeleteUser removes a user's published recommendations. With reset=true
// the user's candidates, scores and status are cleared too.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	reset, err := getBoolParam(r, "reset")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	target := &audit.Target{Type: "user", ID: strconv.FormatInt(userID, 10)}
	removed, err := h.pipeline.DeleteUserRecommendations(ctx, &userID)
	if err == nil && reset {
		err = h.pipeline.ResetUserRecommendations(ctx, &userID)
	}
	h.record(r, audit.EventTypeDeleteUser, err, target, "deleted user recommendations",
		map[string]any{"removed": removed, "reset": reset})
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	logging.Ctx(ctx).Info().Int("removed", removed).Bool("reset", reset).Msg("Deleted user recommendations")
	rw.Success(map[string]any{"user_id": userID, "removed": removed, "reset": reset})
}

// RebuildAll queues every active user.
func (h *Handler) RebuildAll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req RebuildRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDecodeError(rw, err)
		return
	}
	queued, err := h.pipeline.BuildAllUserRecommendations(r.Context(), req.Now)
	h.record(r, audit.EventTypeRebuildAll, err, nil, "queued all active users",
		map[string]any{"queued": queued, "now": req.Now})
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	rw.Accepted(map[string]any{"queued": queued, "now": req.Now})
}

// DeleteAll removes every published recommendation. With reset=true all
// pipeline state is cleared too.
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	reset, err := getBoolParam(r, "reset")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	removed, err := h.pipeline.DeleteUserRecommendations(r.Context(), nil)
	if err == nil && reset {
		err = h.pipeline.ResetUserRecommendations(r.Context(), nil)
	}
	h.record(r, audit.EventTypeDeleteAll, err, nil, "deleted all recommendations",
		map[string]any{"removed": removed, "reset": reset})
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	logging.Ctx(r.Context()).Warn().Int("removed", removed).Bool("reset", reset).Msg("Deleted all recommendations")
	rw.Success(map[string]any{"removed": removed, "reset": reset})
}

// ProcessQueue runs one queue batch within the requested budget.
func (h *Handler) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req QueueProcessRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDecodeError(rw, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	budget := h.cfg.QueueBudget
	if req.BudgetSeconds > 0 {
		budget = time.Duration(req.BudgetSeconds) * time.Second
	}

	stats, err := h.pipeline.ProcessQueue(r.Context(), budget)
	h.record(r, audit.EventTypeQueueProcessed, err, nil, "processed queue batch",
		map[string]any{"budget": budget.String(), "processed": stats.Processed})
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	rw.Success(stats)
}

// UserEvent dispatches the login, registered and updated hooks.
func (h *Handler) UserEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	req := UserEventRequest{UserID: userID, Event: chi.URLParam(r, "event")}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	var res *recommend.BuildResult
	switch req.Event {
	case "login":
		res, err = h.pipeline.OnUserLogin(ctx, userID)
	case "registered":
		res, err = h.pipeline.OnUserRegistered(ctx, userID)
	case "updated":
		res, err = h.pipeline.OnUserUpdated(ctx, userID)
	}
	buildResponse(rw, userID, res, err)
}

// UserStatus returns one user's status record.
func (h *Handler) UserStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	st, err := h.pipeline.UserStatus(r.Context(), userID)
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	rw.Success(st)
}

// UserHistory returns a user's publish history, newest first.
func (h *Handler) UserHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, err := userIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	limit, ok := h.limit(rw, r)
	if !ok {
		return
	}
	entries, err := h.pipeline.History(r.Context(), userID, limit)
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	if entries == nil {
		entries = []recommend.HistoryEntry{}
	}
	rw.List(entries, len(entries))
}

// Statuses lists user status records.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, ok := h.limit(rw, r)
	if !ok {
		return
	}
	statuses, err := h.pipeline.Statuses(r.Context(), limit)
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	if statuses == nil {
		statuses = []recommend.UserStatus{}
	}
	rw.List(statuses, len(statuses))
}

// RemovePluginScores purges the scores of a disabled plugin.
func (h *Handler) RemovePluginScores(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := PluginRequest{PluginID: chi.URLParam(r, "pluginID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	n, err := h.pipeline.RemovePluginScores(r.Context(), req.PluginID)
	h.record(r, audit.EventTypePluginScoresRemoved, err, &audit.Target{Type: "plugin", ID: req.PluginID},
		"removed plugin scores", map[string]any{"deleted": n})
	if err != nil {
		writePipelineError(rw, err)
		return
	}
	rw.Success(map[string]any{"plugin_id": req.PluginID, "deleted": n})
}

// limit reads and validates the limit query parameter, writing the error
// response itself when it is invalid.
func (h *Handler) limit(rw *ResponseWriter, r *http.Request) (int, bool) {
	limit, err := getIntParam(r, "limit", h.cfg.DefaultLimit)
	if err != nil {
		rw.BadRequest(err.Error())
		return 0, false
	}
	if apiErr := validateRequest(&ListRequest{Limit: limit}); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return 0, false
	}
	return limit, true
}
