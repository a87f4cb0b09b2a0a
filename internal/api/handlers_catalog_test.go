// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestImportCatalog(t *testing.T) {
	valid := `{
		"users": [{"id": 1, "language": "en", "active": true}],
		"content": [{"id": 10, "type": "article", "published": true, "changed": "2026-01-02T00:00:00Z"}],
		"views": [{"content_id": 10, "views": 3}]
	}`

	tests := []struct {
		name       string
		body       string
		importErr  error
		wantStatus int
		wantCode   string
		wantRows   string
	}{
		{name: "valid", body: valid, wantStatus: http.StatusOK, wantRows: `"rows":3`},
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "empty batch", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{
			name:       "missing content type",
			body:       `{"content": [{"id": 10}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidationFailed,
		},
		{
			name:       "self similarity",
			body:       `{"similarity": [{"content_id": 5, "similar_id": 5, "score": 1}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidationFailed,
		},
		{
			name:       "too many rows",
			body:       `{"views": [` + strings.TrimSuffix(strings.Repeat(`{"content_id":1,"views":1},`, 11), ",") + `]}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   ErrCodePayloadTooLarge,
		},
		{name: "database failure", body: valid, importErr: errBoom, wantStatus: http.StatusInternalServerError, wantCode: ErrCodeDatabaseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockCatalog{err: tt.importErr}
			rec, env := do(t, newTestRouter(&mockPipeline{}, c), http.MethodPost, "/api/v1/catalog/import", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want %s", env.Error, tt.wantCode)
				}
				return
			}
			if !strings.Contains(string(env.Data), tt.wantRows) {
				t.Errorf("data = %s, want %s", env.Data, tt.wantRows)
			}
			if len(c.batches) != 1 || len(c.batches[0].Users) != 1 {
				t.Errorf("imported batches = %+v", c.batches)
			}
		})
	}
}

func TestImportCatalog_Unavailable(t *testing.T) {
	rec, env := do(t, newTestRouter(&mockPipeline{}, nil), http.MethodPost, "/api/v1/catalog/import", `{"views":[{"content_id":1}]}`)
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("status %d error %+v", rec.Code, env.Error)
	}
}
