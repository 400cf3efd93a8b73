// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/risk"
)

func sampleView() *cascade.View {
	return &cascade.View{
		Summary:      risk.Summary{Total: 10, High: 2, Medium: 3, Low: 5, TotalAffected: 11, AvgCascadeImpact: 20},
		SummaryScope: risk.SummaryScope{Counts: risk.ScopeFilteredDataset, TotalAffected: risk.ScopePage, AvgCascadeImpact: risk.ScopePage},
		Source:       risk.SourceUpstreamCounts,
		Trends:       []risk.TrendBucket{{Hour: 7, High: 1, Medium: 1}},
		TrendScope:   risk.ScopePage,
		Page: risk.Page{
			Records: []risk.Record{
				{FlightID: "AI101", DelayMinutes: 45, AffectedFlights: 5, CascadeImpactMinutes: 30, RiskLevel: risk.TierHigh},
				{FlightID: "AI102", DelayMinutes: 20, AffectedFlights: 6, CascadeImpactMinutes: 10, RiskLevel: risk.TierMedium},
			},
			PageNumber:    1,
			PageSize:      2,
			TotalMatching: 10,
			TotalPages:    5,
		},
		Thresholds: testThresholds(),
		SnapshotID: "snap-1",
		FilterKey:  "0123456789abcdef",
	}
}

func TestCascadeSuccess(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.view = sampleView()

	rec := ts.do(t, http.MethodGet, "/api/v1/cascade?risk_level=high,Medium&risk_level=HIGH&flight=%20ai%20&page=2&per_page=10&filter_key=0123456789ABCDEF")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var view cascade.View
	decodeData(t, decodeEnvelope(t, rec), &view)
	if view.Summary != sampleView().Summary || view.Source != risk.SourceUpstreamCounts {
		t.Errorf("view = %+v", view)
	}
	if len(view.Page.Records) != 2 || view.Page.Records[0].FlightID != "AI101" {
		t.Errorf("records = %+v", view.Page.Records)
	}

	got := ts.cascade.requests[0]
	wantTiers := []risk.Tier{risk.TierHigh, risk.TierMedium}
	if len(got.Filter.RiskLevels) != 2 || got.Filter.RiskLevels[0] != wantTiers[0] || got.Filter.RiskLevels[1] != wantTiers[1] {
		t.Errorf("tiers = %v, want %v", got.Filter.RiskLevels, wantTiers)
	}
	if got.Filter.FlightSubstring != "ai" || got.Page != 2 || got.PerPage != 10 || got.FilterKey != "0123456789abcdef" {
		t.Errorf("service request = %+v", got)
	}
}

func TestCascadeDefaults(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.view = sampleView()

	if rec := ts.do(t, http.MethodGet, "/api/v1/cascade?page=abc"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := ts.cascade.requests[0]
	if got.Page != 1 || got.PerPage != 25 || !got.Filter.IsZero() {
		t.Errorf("service request = %+v, want page 1 of 25 unfiltered", got)
	}
}

func TestCascadeValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"unknown tier", "risk_level=critical", "risk_level[0]"},
		{"page zero", "page=0", "page"},
		{"negative page size", "per_page=-5", "per_page"},
		{"page size above hard cap", "per_page=5000", "per_page"},
		{"page size above configured cap", "per_page=500", "per_page"},
		{"bad filter key", "filter_key=xyz", "filter_key"},
		{"bad format", "format=xml", "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t)
			rec := ts.do(t, http.MethodGet, "/api/v1/cascade?"+tt.query)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Error.Code != ErrCodeValidation {
				t.Errorf("code = %s, want %s", env.Error.Code, ErrCodeValidation)
			}
			if field := errorDetails(t, env)["field"]; field != tt.field {
				t.Errorf("field = %v, want %s", field, tt.field)
			}
			if len(ts.cascade.requests) != 0 {
				t.Error("service called for an invalid request")
			}
		})
	}
}

func TestCascadeRepeatedTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []risk.Tier
	}{
		{"repeat within one value", "risk_level=High,High,Medium,Low", []risk.Tier{risk.TierHigh, risk.TierMedium, risk.TierLow}},
		{"repeat across values", "risk_level=low&risk_level=LOW,medium&risk_level=Low", []risk.Tier{risk.TierLow, risk.TierMedium}},
		{"every tier twice", "risk_level=high,medium,low,HIGH,MEDIUM,LOW", []risk.Tier{risk.TierHigh, risk.TierMedium, risk.TierLow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t)
			ts.cascade.view = sampleView()

			rec := ts.do(t, http.MethodGet, "/api/v1/cascade?"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			got := ts.cascade.requests[0].Filter.RiskLevels
			if len(got) != len(tt.want) {
				t.Fatalf("tiers = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tiers[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDedupeRiskLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"single", []string{"High"}, []string{"High"}},
		{"case-insensitive tiers", []string{"High", "high", "HIGH", "low"}, []string{"High", "low"}},
		{"unknown values kept once", []string{"critical", "Critical", "high"}, []string{"critical", "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := dedupeRiskLevels(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("dedupeRiskLevels(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("dedupeRiskLevels(%v)[%d] = %s, want %s", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCascadePageOutOfRange(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.err = &risk.OutOfRangeError{Page: 5, TotalPages: 3}

	rec := ts.do(t, http.MethodGet, "/api/v1/cascade?page=5&per_page=2")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error.Code != ErrCodePageOutOfRange {
		t.Errorf("code = %s", env.Error.Code)
	}
	details := errorDetails(t, env)
	if details["total_pages"] != float64(3) || details["page"] != float64(5) {
		t.Errorf("details = %v", details)
	}
}

func TestCascadeUnexpectedError(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.err = errors.New("boom")

	rec := ts.do(t, http.MethodGet, "/api/v1/cascade")
	if rec.Code != http.StatusInternalServerError || decodeEnvelope(t, rec).Error.Code != ErrCodeInternalError {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCascadeDegradedIsOK(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	v := sampleView()
	v.Degraded = true
	v.Fallback = cascade.FallbackSnapshot
	ts.cascade.view = v

	rec := ts.do(t, http.MethodGet, "/api/v1/cascade")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a degraded view", rec.Code)
	}
	var view cascade.View
	decodeData(t, decodeEnvelope(t, rec), &view)
	if !view.Degraded || view.Fallback != cascade.FallbackSnapshot {
		t.Errorf("view degraded = %v fallback = %s", view.Degraded, view.Fallback)
	}
}

func TestCascadeMsgPack(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.view = sampleView()

	rec := ts.do(t, http.MethodGet, "/api/v1/cascade?format=msgpack")
	if ct := rec.Header().Get("Content-Type"); ct != contentTypeMsgPack {
		t.Fatalf("Content-Type = %q", ct)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.SetCustomStructTag("json")
	var out struct {
		Success bool         `json:"success"`
		Data    cascade.View `json:"data"`
	}
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.Data.Summary.Total != 10 || out.Data.Page.TotalPages != 5 {
		t.Errorf("decoded = %+v", out)
	}

	// Validation errors honour the requested format too.
	rec = ts.do(t, http.MethodGet, "/api/v1/cascade?format=msgpack&page=0")
	if rec.Code != http.StatusBadRequest || rec.Header().Get("Content-Type") != contentTypeMsgPack {
		t.Errorf("status = %d, Content-Type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestCascadeTrends(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.trends = &cascade.TrendView{
		Trends:     []risk.TrendBucket{{Hour: 9, Low: 1}, {Hour: 10, High: 1}},
		TrendScope: risk.ScopeFilteredDataset,
		Summary:    risk.Summary{Total: 2, High: 1, Low: 1},
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/cascade/trends?flight=6E&risk_level=low,high")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tv cascade.TrendView
	decodeData(t, decodeEnvelope(t, rec), &tv)
	if len(tv.Trends) != 2 || tv.TrendScope != risk.ScopeFilteredDataset {
		t.Errorf("trends = %+v", tv)
	}
	if f := ts.cascade.filters[0]; f.FlightSubstring != "6E" || len(f.RiskLevels) != 2 {
		t.Errorf("filter = %+v", f)
	}
}

func TestThresholdsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/cascade/thresholds")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var active risk.ActiveThresholds
	decodeData(t, decodeEnvelope(t, rec), &active)
	if active.Thresholds != (risk.Thresholds{Q60: 15, Q90: 30}) || active.SnapshotID != "snap-1" {
		t.Errorf("thresholds = %+v", active)
	}
}

func TestRecomputeThresholds(t *testing.T) {
	t.Parallel()

	t.Run("publishes and clears cache", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		ts.api.cache.Set("stale", "value")
		ts.recomputer.result = &cascade.RefreshResult{
			Records:    10,
			Changed:    true,
			Thresholds: risk.ActiveThresholds{Thresholds: risk.Thresholds{Q60: 6, Q90: 9}, Source: risk.SourceDataset},
		}

		rec := ts.do(t, http.MethodPost, "/api/v1/cascade/thresholds/recompute")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var result cascade.RefreshResult
		decodeData(t, decodeEnvelope(t, rec), &result)
		if !result.Changed || result.Thresholds.Thresholds.Q90 != 9 {
			t.Errorf("result = %+v", result)
		}
		if ts.api.cache.Len() != 0 {
			t.Error("dataset cache not cleared after a threshold change")
		}
	})

	t.Run("empty reference", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		ts.recomputer.err = risk.ErrEmptyReference
		rec := ts.do(t, http.MethodPost, "/api/v1/cascade/thresholds/recompute")
		if rec.Code != http.StatusConflict || decodeEnvelope(t, rec).Error.Code != ErrCodeConflict {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		h := NewHandler(testAPIConfig(), Deps{Cascade: &fakeCascade{}})
		router := NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})).SetupChi()
		ts := &testServer{handler: router}
		if rec := ts.do(t, http.MethodPost, "/api/v1/cascade/thresholds/recompute"); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t)
		rec := ts.do(t, http.MethodGet, "/api/v1/cascade/thresholds/recompute")
		if rec.Code != http.StatusMethodNotAllowed || decodeEnvelope(t, rec).Error.Code != ErrCodeMethodNotAllowed {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRespondCascadeErrorCancelled(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.cascade.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := ts.doWithContext(t, ctx, "/api/v1/cascade")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
