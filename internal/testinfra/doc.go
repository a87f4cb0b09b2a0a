// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package testinfra provides container helpers for integration tests.
//
// It uses testcontainers-go to run real services next to the test binary.
// Everything here is behind the integration build tag.
//
// # NATS Container
//
// NATSContainer runs a NATS server with JetStream enabled, for exercising
// the event publisher against a real broker:
//
//	func TestPublisher_NATS(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    nats, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, nats)
//
//	    cfg := config.NATSConfig{Enabled: true, URL: nats.URL, StreamName: "TEST"}
//	    // ...
//	}
//
// Tests are skipped when Docker is unavailable. The first run may need to
// pull the image.
package testinfra
