// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUserNotFound is returned when the owning user no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidStage is returned for a stage outside the known set.
	ErrInvalidStage = errors.New("invalid recommendation stage")

	// ErrNoCombiner is returned when no score combiner is registered at all.
	ErrNoCombiner = errors.New("no score combiner registered")

	// ErrRunInProgress is returned when another run owns the user's status.
	ErrRunInProgress = errors.New("recommendation run already in progress")

	// ErrRunLost is returned when a run's ownership was taken over mid-run.
	ErrRunLost = errors.New("recommendation run ownership lost")

	// ErrNotReady is returned when a plugin reports the user is not ready.
	ErrNotReady = errors.New("recommendation engines not ready")

	// ErrDuplicatePlugin is returned when a plugin id is registered twice.
	ErrDuplicatePlugin = errors.New("plugin already registered")
)
