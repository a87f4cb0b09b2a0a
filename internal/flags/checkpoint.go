// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package flags

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// LastRun returns when the named job last completed. ok is false when it
// never ran.
func (s *Store) LastRun(name string) (t time.Time, ok bool, err error) {
	if err := s.checkOpen(); err != nil {
		return time.Time{}, false, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixJob + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err = time.Parse(time.RFC3339Nano, string(val))
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read checkpoint %s: %w", name, err)
	}
	return t, true, nil
}

// RecordRun stores t as the named job's last completion.
func (s *Store) RecordRun(name string, t time.Time) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixJob+name), []byte(t.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return fmt.Errorf("write checkpoint %s: %w", name, err)
	}
	return nil
}
