// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package services provides suture.Service wrappers for the server's
background work.

Each wrapper implements suture.Service and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTPServerService wraps *http.Server, translating ListenAndServe into Serve
with a graceful Shutdown on cancellation.

The periodic services run a pipeline maintenance call on a ticker:

  - QueueService: drains the rebuild queue within a time budget (cron mode)
  - StaleService: marks READY users whose recommendations aged out
  - HistoryCleanupService: deletes history beyond retention, checkpointed
    so a restart does not repeat a recent pass
  - FlagGCService: runs the flag store value log garbage collection

A failing call is logged and retried on the next tick. Returning the error
to suture would only restart the same loop, so periodic services return
only when their context ends.

The services depend on small interfaces (QueueProcessor, StaleMarker,
HistoryCleaner, Checkpointer, GarbageCollector) so they can be tested
with mocks and without importing the storage packages.
*/
package services
