// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package api implements the admin HTTP API of the recommender.

Every endpoint answers with the same envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

Routes (all under /api/v1):

	GET    /health                          database and event sink health
	GET    /status                          plugin health
	GET    /statuses                        user status records
	GET    /audit                           recorded admin actions
	GET    /users/{userID}/recommendations  published recommendations
	POST   /users/{userID}/recommendations  queue or build one user
	DELETE /users/{userID}/recommendations  remove one user's recommendations
	GET    /users/{userID}/status           one user's status record
	GET    /users/{userID}/history          one user's publish history
	POST   /users/{userID}/events/{event}   login, registered and updated hooks
	POST   /recommendations/rebuild         queue every active user
	DELETE /recommendations                 remove every recommendation
	POST   /queue/process                   run one queue batch
	DELETE /plugins/{pluginID}/scores       purge a disabled plugin's scores
	POST   /catalog/import                  apply a catalog batch

Prometheus metrics are served at /metrics outside the rate limiter.
*/
package api
