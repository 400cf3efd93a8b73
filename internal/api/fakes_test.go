// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/config"
	"github.com/tomtom215/cascade/internal/database"
	"github.com/tomtom215/cascade/internal/risk"
)

type fakeCascade struct {
	mu         sync.Mutex
	view       *cascade.View
	trends     *cascade.TrendView
	err        error
	thresholds risk.ActiveThresholds
	requests   []cascade.Request
	filters    []risk.Filter
}

func (f *fakeCascade) View(_ context.Context, req cascade.Request) (*cascade.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func (f *fakeCascade) Trends(_ context.Context, filter risk.Filter) (*cascade.TrendView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.trends, nil
}

func (f *fakeCascade) Thresholds() risk.ActiveThresholds {
	return f.thresholds
}

type fakeRecomputer struct {
	result *cascade.RefreshResult
	err    error
	calls  int
}

func (f *fakeRecomputer) Recompute(context.Context) (*cascade.RefreshResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeDataset struct {
	mu           sync.Mutex
	meta         *database.DatasetMeta
	routes       []database.TopRoute
	airlines     []database.TopAirline
	slots        []database.SlotStat
	run          *database.RefreshRun
	pingErr      error
	err          error
	metaCalls    int
	routeCalls   int
	airlineCalls int
	slotCalls    int
	onTimeBelow  float64
	greenBelow   float64
	limit        int
}

func (f *fakeDataset) DatasetMeta(_ context.Context, _ int) (*database.DatasetMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	return f.meta, f.err
}

func (f *fakeDataset) TopRoutes(_ context.Context, limit int, onTimeBelow float64) ([]database.TopRoute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routeCalls++
	f.limit = limit
	f.onTimeBelow = onTimeBelow
	return f.routes, f.err
}

func (f *fakeDataset) TopAirlines(_ context.Context, limit int) ([]database.TopAirline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.airlineCalls++
	f.limit = limit
	return f.airlines, f.err
}

func (f *fakeDataset) Slots(_ context.Context, greenBelow float64) ([]database.SlotStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotCalls++
	f.greenBelow = greenBelow
	return f.slots, f.err
}

func (f *fakeDataset) LastRefreshRun(context.Context) (*database.RefreshRun, error) {
	return f.run, nil
}

func (f *fakeDataset) Ping(context.Context) error { return f.pingErr }

type fakeUpstream struct {
	state   string
	pingErr error
}

func (f *fakeUpstream) State() string              { return f.state }
func (f *fakeUpstream) Ping(context.Context) error { return f.pingErr }

func testThresholds() risk.ActiveThresholds {
	return risk.ActiveThresholds{
		Thresholds: risk.Thresholds{Q60: 15, Q90: 30},
		SnapshotID: "snap-1",
		Source:     risk.SourceConfig,
		UpdatedAt:  time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
	}
}

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{DefaultPageSize: 25, MaxPageSize: 200, CacheTTL: time.Minute}
}

type testServer struct {
	handler    http.Handler
	api        *Handler
	cascade    *fakeCascade
	recomputer *fakeRecomputer
	dataset    *fakeDataset
	upstream   *fakeUpstream
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		cascade:    &fakeCascade{thresholds: testThresholds()},
		recomputer: &fakeRecomputer{},
		dataset:    &fakeDataset{},
		upstream:   &fakeUpstream{state: "closed"},
	}
	ts.api = NewHandler(testAPIConfig(), Deps{
		Cascade:    ts.cascade,
		Recomputer: ts.recomputer,
		Dataset:    ts.dataset,
		Upstream:   ts.upstream,
	})
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	ts.handler = NewRouter(ts.api, mw).SetupChi()
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

// envelope mirrors APIResponse with a raw payload.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"metadata"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}

func errorDetails(t *testing.T, env envelope) map[string]any {
	t.Helper()
	if env.Error == nil {
		t.Fatal("envelope has no error")
	}
	details, ok := env.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %#v, want an object", env.Error.Details)
	}
	return details
}

func (ts *testServer) doWithContext(t *testing.T, ctx context.Context, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx))
	return rec
}
