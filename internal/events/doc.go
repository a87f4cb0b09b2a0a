// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package events publishes pipeline notifications through Watermill.

Two events are emitted:

	recommendation.published      one per flag written by the publisher
	recommendation.run_completed  one per run that reached READY

By default events go to an in-process gochannel, which is enough for local
subscribers and tests. With NATS enabled they go to a JetStream stream
instead; the stream is created or updated on startup and an embedded NATS
server can be started in-process for single node deployments.

Publish failures are logged and counted but never returned to the pipeline
as fatal: the Publisher's EventSink methods return the error and the
pipeline only logs it.

Publishing is guarded by a circuit breaker so a broker outage does not add
the NATS retry delay to every published recommendation.
*/
package events
