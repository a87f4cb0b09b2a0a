// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/recommender/internal/recommend"
)

type flagKey struct {
	flagType  string
	userID    int64
	contentID int64
}

// Flags implements recommend.FlagSink in memory.
type Flags struct {
	mu      sync.Mutex
	types   map[string][]string
	flags   map[flagKey]recommend.Flag
	ordinal map[flagKey]int
	next    int
}

// NewFlags returns a sink knowing flagTypes, each applicable to the given
// content types. An empty content type list accepts everything.
func NewFlags(flagTypes map[string][]string) *Flags {
	return &Flags{
		types:   flagTypes,
		flags:   make(map[flagKey]recommend.Flag),
		ordinal: make(map[flagKey]int),
	}
}

func (f *Flags) FlagTypeExists(_ context.Context, flagType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.types[flagType]
	return ok, nil
}

func (f *Flags) Applies(flagType, contentType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	bundles, ok := f.types[flagType]
	if !ok {
		return false
	}
	if len(bundles) == 0 {
		return true
	}
	for _, b := range bundles {
		if b == contentType {
			return true
		}
	}
	return false
}

func (f *Flags) IsFlagged(_ context.Context, flagType string, userID, contentID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.flags[flagKey{flagType, userID, contentID}]
	return ok, nil
}

func (f *Flags) GetFlagging(_ context.Context, flagType string, userID, contentID int64) (*recommend.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flags[flagKey{flagType, userID, contentID}]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &fl, nil
}

func (f *Flags) Flag(_ context.Context, fl *recommend.Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := flagKey{fl.FlagType, fl.UserID, fl.ContentID}
	f.flags[k] = *fl
	f.next++
	f.ordinal[k] = f.next
	return nil
}

func (f *Flags) Unflag(_ context.Context, fl *recommend.Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := flagKey{fl.FlagType, fl.UserID, fl.ContentID}
	delete(f.flags, k)
	delete(f.ordinal, k)
	return nil
}

func (f *Flags) FlagsByPlugin(_ context.Context, flagType string, userID int64, pluginID string) ([]recommend.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recommend.Flag
	var keys []flagKey
	for k, fl := range f.flags {
		if k.flagType != flagType || k.userID != userID {
			continue
		}
		if pluginID != "" && fl.PluginID != pluginID {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return f.ordinal[keys[i]] < f.ordinal[keys[j]] })
	for _, k := range keys {
		out = append(out, f.flags[k])
	}
	return out, nil
}

func (f *Flags) UnflagAll(_ context.Context, flagType, pluginID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, fl := range f.flags {
		if k.flagType == flagType && fl.PluginID == pluginID {
			delete(f.flags, k)
			delete(f.ordinal, k)
			n++
		}
	}
	return n, nil
}

var _ recommend.FlagSink = (*Flags)(nil)
