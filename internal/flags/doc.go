// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package flags stores published recommendations as flags in BadgerDB.

A flag marks one piece of content as recommended to one user. Flag types
come from configuration and name the content types they may be placed on.
The Store implements recommend.FlagSink and is the only place published
recommendations live; the DuckDB tables only hold pipeline state.

Key layout:

	flag/<type>/<user:020d>/<content:020d>  -> JSON record (sequence + flag)
	job/<name>                              -> last run time (RFC 3339)

Fixed width ids keep a user's flags contiguous, so per-user listing is a
single prefix scan. The sequence number preserves insertion order.

The job keys are checkpoints for the periodic services in the supervisor
tree, so a restart does not rerun history cleanup that ran minutes ago.

Usage:

	store, err := flags.Open(&cfg.Flags)
	if err != nil {
	    return err
	}
	defer store.Close()

	ok, err := store.IsFlagged(ctx, "recommended", userID, contentID)
*/
package flags
