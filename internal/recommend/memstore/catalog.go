// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package memstore

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/tomtom215/recommender/internal/recommend"
)

// Directory implements recommend.UserDirectory in memory.
type Directory struct {
	mu    sync.RWMutex
	users map[int64]recommend.User
}

// NewDirectory returns a directory holding users.
func NewDirectory(users ...recommend.User) *Directory {
	d := &Directory{users: make(map[int64]recommend.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Put adds or replaces a user.
func (d *Directory) Put(u recommend.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// Delete removes a user.
func (d *Directory) Delete(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

func (d *Directory) GetUser(_ context.Context, userID int64) (*recommend.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, recommend.ErrUserNotFound
	}
	return &u, nil
}

func (d *Directory) ActiveUsers(_ context.Context) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, 0, len(d.users))
	for id, u := range d.users {
		if u.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Catalog implements recommend.Catalog in memory. Random orderings use a
// seeded source so tests are deterministic.
type Catalog struct {
	mu          sync.Mutex
	contents    map[int64]recommend.Content
	views       map[int64]int
	interests   map[int64][]int64
	completions map[int64][]int64
	similar     map[int64][]recommend.SimilarContent
	review      map[int64][]int64
	rng         *rand.Rand
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		contents:    make(map[int64]recommend.Content),
		views:       make(map[int64]int),
		interests:   make(map[int64][]int64),
		completions: make(map[int64][]int64),
		similar:     make(map[int64][]recommend.SimilarContent),
		review:      make(map[int64][]int64),
		rng:         rand.New(rand.NewSource(42)), //nolint:gosec // deterministic shuffling for tests
	}
}

// AddContent adds content items.
func (c *Catalog) AddContent(items ...recommend.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.contents[it.ID] = it
	}
}

// SetViews sets the view count of a content item.
func (c *Catalog) SetViews(contentID int64, views int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[contentID] = views
}

// SetInterests sets the topics a user follows.
func (c *Catalog) SetInterests(userID int64, topics ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interests[userID] = topics
}

// SetCompletions sets the user's completed content, newest first.
func (c *Catalog) SetCompletions(userID int64, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completions[userID] = ids
}

// SetSimilar sets the similarity list of a content item.
func (c *Catalog) SetSimilar(contentID int64, items ...recommend.SimilarContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.similar[contentID] = items
}

// SetReview sets the user's review material.
func (c *Catalog) SetReview(userID int64, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.review[userID] = ids
}

func langMatch(langs []string, lang string) bool {
	if len(langs) == 0 {
		return true
	}
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

// published returns published content sorted by id.
func (c *Catalog) published(langs []string) []recommend.Content {
	out := make([]recommend.Content, 0, len(c.contents))
	for _, it := range c.contents {
		if it.Published && langMatch(langs, it.Language) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func limitContent(items []recommend.Content, limit int) []recommend.Content {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func (c *Catalog) Content(_ context.Context, id int64) (*recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.contents[id]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &it, nil
}

func (c *Catalog) RecentContent(_ context.Context, langs []string, limit int) ([]recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.published(langs)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Changed.After(items[j].Changed) })
	return limitContent(items, limit), nil
}

func (c *Catalog) PopularContent(_ context.Context, langs []string, limit int) ([]recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.published(langs)
	filtered := items[:0]
	for _, it := range items {
		if c.views[it.ID] > 0 {
			filtered = append(filtered, it)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return c.views[filtered[i].ID] > c.views[filtered[j].ID] })
	return limitContent(filtered, limit), nil
}

func (c *Catalog) RandomContent(_ context.Context, limit int) ([]recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.published(nil)
	c.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return limitContent(items, limit), nil
}

func (c *Catalog) TopicContent(_ context.Context, topics []int64, types []string, exclude []int64, limit int) ([]recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	topicSet := make(map[int64]bool, len(topics))
	for _, t := range topics {
		topicSet[t] = true
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []recommend.Content
	for _, it := range c.published(nil) {
		if !topicSet[it.TopicID] || excluded[it.ID] || it.ParentID != 0 {
			continue
		}
		if len(typeSet) > 0 && !typeSet[it.Type] {
			continue
		}
		out = append(out, it)
	}
	c.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return limitContent(out, limit), nil
}

func (c *Catalog) SimilarContent(_ context.Context, contentID int64, langs []string, limit int) ([]recommend.SimilarContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recommend.SimilarContent
	for _, s := range c.similar[contentID] {
		if !s.Content.Published || !langMatch(langs, s.Content.Language) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Catalog) PadContent(_ context.Context, userID int64, langs []string, limit int) ([]recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	done := make(map[int64]bool)
	for _, id := range c.completions[userID] {
		done[id] = true
	}
	var out []recommend.Content
	for _, it := range c.published(langs) {
		if !done[it.ID] {
			out = append(out, it)
		}
	}
	return limitContent(out, limit), nil
}

func (c *Catalog) ReviewContent(_ context.Context, userID int64, limit int) ([]recommend.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recommend.Content
	for _, id := range c.review[userID] {
		if it, ok := c.contents[id]; ok && it.Published {
			out = append(out, it)
		}
	}
	return limitContent(out, limit), nil
}

func (c *Catalog) UserInterests(_ context.Context, userID int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.interests[userID]...), nil
}

func (c *Catalog) Completions(_ context.Context, userID int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.completions[userID]...), nil
}

var (
	_ recommend.UserDirectory = (*Directory)(nil)
	_ recommend.Catalog       = (*Catalog)(nil)
)
