// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

// Package snapshot keeps the last successfully computed value per key so the
// service can answer while the analytics service is unavailable.
//
// Values are encoded with MessagePack (using their json tags) in both
// implementations, so a stored value never aliases the caller's memory.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when no live snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// Store persists last-known-good values of type T.
type Store[T any] interface {
	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, v *T) error
	// Get returns the value and when it was stored, or ErrNotFound.
	Get(ctx context.Context, key string) (*T, time.Time, error)
	Close() error
}

// envelope is the stored form of a value.
type envelope struct {
	StoredAt time.Time          `msgpack:"stored_at"`
	Data     msgpack.RawMessage `msgpack:"data"`
}

func encode[T any](v *T, storedAt time.Time) ([]byte, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&envelope{StoredAt: storedAt, Data: data})
}

func decode[T any](raw []byte) (*T, time.Time, error) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, time.Time{}, err
	}
	var v T
	dec := msgpack.NewDecoder(bytes.NewReader(env.Data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&v); err != nil {
		return nil, time.Time{}, err
	}
	return &v, env.StoredAt, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
