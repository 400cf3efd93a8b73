// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "snapshot:"

// BadgerStore persists snapshots in BadgerDB so they survive restarts.
// Badger enforces the TTL.
type BadgerStore[T any] struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerStore opens or creates a Badger database in dir.
func OpenBadgerStore[T any](dir string, ttl time.Duration) (*BadgerStore[T], error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return NewBadgerStore[T](db, ttl), nil
}

// NewBadgerStore wraps an open Badger database.
func NewBadgerStore[T any](db *badger.DB, ttl time.Duration) *BadgerStore[T] {
	return &BadgerStore[T]{db: db, ttl: ttl}
}

func (s *BadgerStore[T]) Put(_ context.Context, key string, v *T) error {
	raw, err := encode(v, time.Now())
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), raw)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set snapshot %s: %w", key, err)
		}
		return nil
	})
}

func (s *BadgerStore[T]) Get(_ context.Context, key string) (*T, time.Time, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot %s: %w", key, err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	v, storedAt, err := decode[T](raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return v, storedAt, nil
}

// Close closes the underlying database.
func (s *BadgerStore[T]) Close() error {
	return s.db.Close()
}
