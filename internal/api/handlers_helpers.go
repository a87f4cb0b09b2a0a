// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recommender/internal/recommend"
	"github.com/tomtom215/recommender/internal/validation"
)

// errEmptyBody is returned by decodeJSON for a required body that is empty.
var errEmptyBody = errors.New("request body is empty")

// sanitizeLogValue escapes control characters so request data cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateRequest runs the validator on v.
func validateRequest(v any) *validation.APIError {
	if err := validation.ValidateStruct(v); err != nil {
		return err.ToAPIError()
	}
	return nil
}

// decodeJSON decodes the body into v. An empty body leaves v untouched
// unless required is set.
func decodeJSON(r *http.Request, v any, required bool) error {
	if r.Body == nil {
		if required {
			return errEmptyBody
		}
		return nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if required {
			return errEmptyBody
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(rw *ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	rw.BadRequest("Invalid JSON body: " + err.Error())
}

// userIDParam parses the {userID} path parameter.
func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", sanitizeLogValue(raw))
	}
	return id, nil
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// getBoolParam extracts a boolean query parameter, false when absent.
func getBoolParam(r *http.Request, key string) (bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

// writePipelineError maps pipeline errors onto status codes.
func writePipelineError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrUserNotFound):
		rw.NotFound("User not found")
	case errors.Is(err, recommend.ErrNotFound):
		rw.NotFound("Not found")
	case errors.Is(err, recommend.ErrRunInProgress):
		rw.Conflict("A recommendation run for this user is already in progress")
	case errors.Is(err, recommend.ErrRunLost):
		rw.Conflict("The recommendation run was taken over by another worker")
	case errors.Is(err, recommend.ErrNotReady):
		rw.ServiceUnavailable("Recommendation engines are not ready for this user")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		rw.ServiceUnavailable("Request was cancelled before it completed")
	default:
		rw.InternalError(err)
	}
}
