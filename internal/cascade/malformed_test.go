// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package cascade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/cascade/internal/config"
	"github.com/tomtom215/cascade/internal/risk"
	"github.com/tomtom215/cascade/internal/upstream"
)

func TestViewToleratesMalformedUpstreamElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantRecords int
		wantSkipped int
	}{
		{
			name: "string element",
			body: `{"records":[{"flight_id":"AI101","delay_minutes":45,"scheduled_time":"07:15"},` +
				`"garbage",{"flight_id":"AI102","delay_minutes":5,"scheduled_time":"08:00"}]}`,
			wantRecords: 3,
			wantSkipped: 1,
		},
		{
			name: "wrongly typed field",
			body: `{"records":[{"flight_id":"AI101","delay_minutes":45},` +
				`{"flight_id":"AI102","delay_minutes":{"value":5}}]}`,
			wantRecords: 2,
			wantSkipped: 1,
		},
		{
			name:        "counts with the wrong shape",
			body:        `{"meta":{"counts":[1,2,3]},"records":[{"flight_id":"AI101","delay_minutes":45}]}`,
			wantRecords: 1,
			wantSkipped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := newFixture(t, nil, false)
			svc := NewService(Options{
				Upstream: upstream.NewClient(&config.UpstreamConfig{
					URL:           server.URL,
					Timeout:       5 * time.Second,
					MaxRetries:    1,
					RetryDelay:    time.Millisecond,
					FetchPageSize: 10,
					MaxFetchPages: 2,
				}),
				Mirror:     f.reference,
				Thresholds: f.store,
				Snapshots:  f.snapshots,
			})

			v, err := svc.View(context.Background(), Request{Page: 1, PerPage: 10})
			if err != nil {
				t.Fatalf("View() error = %v", err)
			}
			if v.Degraded || v.Fallback != "" {
				t.Errorf("view degraded (fallback %q, reason %q), want served from upstream", v.Fallback, v.DegradedReason)
			}
			if len(v.Page.Records) != tt.wantRecords {
				t.Errorf("records = %d, want %d", len(v.Page.Records), tt.wantRecords)
			}
			if v.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %d, want %d", v.Skipped, tt.wantSkipped)
			}
			if v.Source != risk.SourceLocalCounts {
				t.Errorf("Source = %s, want local", v.Source)
			}
		})
	}
}
