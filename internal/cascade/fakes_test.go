// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package cascade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cascade/internal/cache"
	"github.com/tomtom215/cascade/internal/database"
	"github.com/tomtom215/cascade/internal/risk"
	"github.com/tomtom215/cascade/internal/snapshot"
	"github.com/tomtom215/cascade/internal/upstream"
)

type fakeUpstream struct {
	mu      sync.Mutex
	resp    *upstream.Response
	err     error
	calls   int
	queries []upstream.Query
	records []risk.Record
}

func (f *fakeUpstream) FetchCascade(_ context.Context, q upstream.Query) (*upstream.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeUpstream) FetchAll(context.Context) ([]risk.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeUpstream) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeReference struct {
	mu      sync.Mutex
	records []risk.Record
	err     error
	runs    int
}

func (f *fakeReference) Records(context.Context) ([]risk.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]risk.Record(nil), f.records...), nil
}

func (f *fakeReference) ReplaceRecords(_ context.Context, records []risk.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append([]risk.Record(nil), records...)
	return nil
}

func (f *fakeReference) DelayMinutes(context.Context) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.DelayMinutes)
	}
	return out, nil
}

func (f *fakeReference) InsertRefreshRun(_ context.Context, records int, th risk.Thresholds, source risk.ThresholdSource) (*database.RefreshRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return &database.RefreshRun{Records: records, Thresholds: th, Source: source, FinishedAt: time.Now()}, nil
}

func newStore(t *testing.T) *risk.ThresholdStore {
	t.Helper()
	store, err := risk.NewThresholdStore(risk.Thresholds{Q60: 15, Q90: 30}, risk.SourceConfig)
	if err != nil {
		t.Fatalf("NewThresholdStore() error = %v", err)
	}
	return store
}

type fixture struct {
	service   *Service
	upstream  *fakeUpstream
	reference *fakeReference
	store     *risk.ThresholdStore
	snapshots *snapshot.MemoryStore[View]
	cache     *cache.LRU[*View]
}

// newFixture wires a Service over fakes. withCache toggles the view cache so
// fallback tests always reach the upstream.
func newFixture(t *testing.T, resp *upstream.Response, withCache bool) *fixture {
	t.Helper()

	f := &fixture{
		upstream:  &fakeUpstream{resp: resp},
		reference: &fakeReference{},
		store:     newStore(t),
		snapshots: snapshot.NewMemoryStore[View](time.Hour),
	}
	opts := Options{
		Upstream:   f.upstream,
		Mirror:     f.reference,
		Thresholds: f.store,
		Snapshots:  f.snapshots,
	}
	if withCache {
		f.cache = cache.NewLRU[*View]("test_views", 64, time.Minute)
		opts.Cache = f.cache
	}
	f.service = NewService(opts)
	return f
}

func rec(id string, delay float64, scheduled string, affected int, impact float64) risk.Record {
	return risk.Record{
		FlightID:             id,
		Origin:               "BOM",
		Destination:          "DEL",
		ScheduledTime:        scheduled,
		DelayMinutes:         delay,
		AffectedFlights:      affected,
		CascadeImpactMinutes: impact,
		MitigationStatus:     risk.MitigationPending,
	}
}

// sampleRecords classifies under {15, 30} as High, Medium, Low, High, Low.
func sampleRecords() []risk.Record {
	return []risk.Record{
		rec("AI101", 45, "07:15", 4, 30),
		rec("AI102", 15, "07:40", 2, 10),
		rec("6E201", 5, "09:00", 0, 2),
		rec("6E202", 31, "10:05", 6, 40),
		rec("UK301", 0, "", 1, 0),
	}
}
