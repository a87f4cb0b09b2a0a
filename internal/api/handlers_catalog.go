// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/recommender/internal/audit"
	"github.com/tomtom215/recommender/internal/database"
	"github.com/tomtom215/recommender/internal/logging"
)

// ImportCatalog applies a catalog batch in one transaction.
func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.catalog == nil {
		rw.ServiceUnavailable("Catalog import is not available")
		return
	}

	var batch database.CatalogBatch
	if err := decodeJSON(r, &batch, true); err != nil {
		writeDecodeError(rw, err)
		return
	}
	if apiErr := validateRequest(&batch); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	rows := batch.Size()
	if rows == 0 {
		rw.BadRequest("Catalog batch is empty")
		return
	}
	if rows > h.cfg.MaxImportRows {
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
			fmt.Sprintf("Catalog batch has %d rows, the limit is %d", rows, h.cfg.MaxImportRows))
		return
	}

	err := h.catalog.ImportCatalog(r.Context(), &batch)
	h.record(r, audit.EventTypeCatalogImport, err, nil, "imported catalog batch", map[string]any{"rows": rows})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	logging.Ctx(r.Context()).Info().Int("rows", rows).Msg("Imported catalog batch")
	rw.Success(map[string]any{
		"rows":        rows,
		"users":       len(batch.Users),
		"content":     len(batch.Content),
		"views":       len(batch.Views),
		"completions": len(batch.Completions),
		"interests":   len(batch.Interests),
		"similarity":  len(batch.Similarity),
		"review":      len(batch.Review),
	})
}
