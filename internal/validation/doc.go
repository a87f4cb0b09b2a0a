// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package validation wraps go-playground/validator v10 with a shared
// instance, the custom tags used by the configuration and the admin API,
// and translation of failures into the API error format.
//
// Custom tags:
//   - horizon: a retention or freshness value such as "forever", "never",
//     "4 weeks" or "36h"
//   - stage: one of the pipeline stage names
//
// Example:
//
//	type rebuildRequest struct {
//	    Priority int  `validate:"min=0,max=1000"`
//	    Now      bool
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
//	    return
//	}
package validation
