// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore is an in-process Store. Entries older than ttl are treated as
// missing; a zero ttl keeps them forever.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore[T]) Put(_ context.Context, key string, v *T) error {
	now := s.now()
	raw, err := encode(v, now)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	entry := memoryEntry{raw: raw}
	if s.ttl > 0 {
		entry.expires = now.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[T]) Get(_ context.Context, key string) (*T, time.Time, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || (!entry.expires.IsZero() && s.now().After(entry.expires)) {
		return nil, time.Time{}, ErrNotFound
	}
	v, storedAt, err := decode[T](entry.raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return v, storedAt, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore[T]) Close() error { return nil }
