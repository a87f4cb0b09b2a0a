// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package supervisor provides process supervision using suture v4.

Every long-running part of the server runs as a suture.Service under a
three layer tree:

	RootSupervisor ("recommender")
	├── StorageSupervisor ("storage-layer")
	│   ├── FlagGCService
	│   └── HistoryCleanupService
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── QueueService
	│   └── StaleService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with backoff. Failures are counted per
layer, so a pipeline service stuck in a restart loop leaves the admin API
serving.

Supervisor events are logged through sutureslog on a slog.Logger backed by
the process zerolog logger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddPipelineService(services.NewQueueService(svc, cfg.Scheduler, cfg.Recommend.CronMode))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
