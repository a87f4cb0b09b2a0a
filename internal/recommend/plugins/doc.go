// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package plugins provides the built-in stage plugins of the recommendation
pipeline.

Generate plugins nominate content from the catalog. Most of them also score
what they nominated: plugins whose score depends on how the item was found
(trending position, similarity) stash a processing score while generating
and confirm it during the score stage, since generation happens before the
candidate set is final.

	new_content       generate, score    recency 1/(days+1)
	trending_content  generate, score    1/position by views
	random_content    generate, score    random
	user_interests    generate, score    0.75 to 1.0 on topic match
	similar_content   generate, score    similarity / max similarity
	pad_results       alter, score       fills short lists, 0.1 to 0.25
	review_material   rerank             review items between min and max
	diversity         rerank             MMR over topics (disabled)
	remote_engine     generate, score    remote engine over HTTP (disabled)
*/
package plugins
