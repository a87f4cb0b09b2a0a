// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package flags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/logging"
	"github.com/tomtom215/recommender/internal/metrics"
	"github.com/tomtom215/recommender/internal/recommend"
)

const (
	prefixFlag = "flag/"
	prefixJob  = "job/"

	sequenceKey       = "seq/flag"
	sequenceBandwidth = 100

	gcRatio      = 0.5
	closeTimeout = 30 * time.Second
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("flag store is closed")

// record is the stored value of a flag key.
type record struct {
	Seq  uint64         `json:"seq"`
	Flag recommend.Flag `json:"flag"`
}

// Store is a BadgerDB backed recommend.FlagSink.
type Store struct {
	db    *badger.DB
	seq   *badger.Sequence
	types map[string][]string

	mu     sync.RWMutex
	closed bool
}

// Open opens the store described by cfg. With InMemory set nothing touches
// the disk.
func Open(cfg *config.FlagsConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open flag sequence: %w", err)
	}

	types := make(map[string][]string, len(cfg.Types))
	for name, contentTypes := range cfg.Types {
		types[name] = append([]string(nil), contentTypes...)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("flag_types", len(types)).
		Msg("Flag store opened")
	return &Store{db: db, seq: seq, types: types}, nil
}

func flagKey(flagType string, userID, contentID int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%020d", prefixFlag, flagType, userID, contentID))
}

func userPrefix(flagType string, userID int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/", prefixFlag, flagType, userID))
}

func typePrefix(flagType string) []byte {
	return []byte(prefixFlag + flagType + "/")
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// FlagTypeExists reports whether flagType is configured.
func (s *Store) FlagTypeExists(_ context.Context, flagType string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	_, ok := s.types[flagType]
	return ok, nil
}

// Applies reports whether flagType may be placed on contentType. A flag
// type without content types applies to everything.
func (s *Store) Applies(flagType, contentType string) bool {
	contentTypes, ok := s.types[flagType]
	if !ok {
		return false
	}
	if len(contentTypes) == 0 {
		return true
	}
	for _, t := range contentTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// IsFlagged reports whether the content is flagged for the user.
func (s *Store) IsFlagged(ctx context.Context, flagType string, userID, contentID int64) (bool, error) {
	_, err := s.GetFlagging(ctx, flagType, userID, contentID)
	if errors.Is(err, recommend.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetFlagging returns the flag, or recommend.ErrNotFound.
func (s *Store) GetFlagging(_ context.Context, flagType string, userID, contentID int64) (*recommend.Flag, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(flagKey(flagType, userID, contentID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, recommend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flag %s/%d/%d: %w", flagType, userID, contentID, err)
	}
	return &rec.Flag, nil
}

// Flag stores f, assigning an id and creation time when missing. Flagging
// already flagged content replaces the stored flag and moves it to the end
// of the user's list.
func (s *Store) Flag(_ context.Context, f *recommend.Flag) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.types[f.FlagType]; !ok {
		return fmt.Errorf("flag type %q: %w", f.FlagType, recommend.ErrNotFound)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Created.IsZero() {
		f.Created = time.Now().UTC()
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next flag sequence: %w", err)
	}
	data, err := json.Marshal(record{Seq: n, Flag: *f})
	if err != nil {
		return fmt.Errorf("marshal flag: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(flagKey(f.FlagType, f.UserID, f.ContentID), data)
	})
	if err != nil {
		return fmt.Errorf("write flag: %w", err)
	}
	return nil
}

// Unflag removes f. Removing a missing flag is not an error.
func (s *Store) Unflag(_ context.Context, f *recommend.Flag) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(flagKey(f.FlagType, f.UserID, f.ContentID))
	})
	if err != nil {
		return fmt.Errorf("delete flag: %w", err)
	}
	return nil
}

// scan calls fn for every record under prefix.
func (s *Store) scan(ctx context.Context, prefix []byte, fn func(key []byte, rec *record)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var rec record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping undecodable flag")
				continue
			}
			fn(item.KeyCopy(nil), &rec)
		}
		return nil
	})
}

// FlagsByPlugin returns the user's flags of flagType in the order they
// were written. An empty pluginID returns every flag.
func (s *Store) FlagsByPlugin(ctx context.Context, flagType string, userID int64, pluginID string) ([]recommend.Flag, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var recs []record
	err := s.scan(ctx, userPrefix(flagType, userID), func(_ []byte, rec *record) {
		if pluginID == "" || rec.Flag.PluginID == pluginID {
			recs = append(recs, *rec)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list flags of user %d: %w", userID, err)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	out := make([]recommend.Flag, len(recs))
	for i := range recs {
		out[i] = recs[i].Flag
	}
	return out, nil
}

// UnflagAll removes every flag of flagType written by pluginID and returns
// how many were removed.
func (s *Store) UnflagAll(ctx context.Context, flagType, pluginID string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var keys [][]byte
	err := s.scan(ctx, typePrefix(flagType), func(key []byte, rec *record) {
		if rec.Flag.PluginID == pluginID {
			keys = append(keys, key)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("scan flags of %s: %w", pluginID, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete flag: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush flag deletes: %w", err)
	}
	return len(keys), nil
}

// RunGC collects the value log until nothing is left to rewrite.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordFlagStoreGC(time.Since(start)) }()

	for {
		err := s.db.RunValueLogGC(gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close releases the sequence and closes the database. Closing twice is a
// no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release flag sequence")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Flag store closed")
		return nil
	case <-time.After(closeTimeout):
		logging.Warn().Dur("timeout", closeTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", closeTimeout)
	}
}

var _ recommend.FlagSink = (*Store)(nil)
