// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package database

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/cascade/internal/config"
	"github.com/tomtom215/cascade/internal/risk"
)

// testDBSemaphore serializes DuckDB use across tests. The semaphore is held
// until the test completes, not just while the database is created.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRecords() []risk.Record {
	return []risk.Record{
		{FlightID: "AI101", Origin: "BOM", Destination: "DEL", ScheduledTime: "06:10", DelayMinutes: 5, AffectedFlights: 1, CascadeImpactMinutes: 4, MitigationStatus: risk.MitigationPending},
		{FlightID: "AI102", Origin: "BOM", Destination: "DEL", ScheduledTime: "07:20", DelayMinutes: 40, AffectedFlights: 6, CascadeImpactMinutes: 50, MitigationStatus: risk.MitigationInProgress, RiskLevel: risk.TierHigh},
		{FlightID: "6E201", Origin: "DEL", Destination: "BLR", ScheduledTime: "08:00", DelayMinutes: 20, AffectedFlights: 2, CascadeImpactMinutes: 15, MitigationStatus: risk.MitigationResolved},
		{FlightID: "6E202", Origin: "BOM", Destination: "DEL", ScheduledTime: "09:45", DelayMinutes: math.NaN(), AffectedFlights: 0, CascadeImpactMinutes: 0},
	}
}

func TestNewAndPing(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	n, err := db.RecordCount(context.Background())
	if err != nil {
		t.Fatalf("RecordCount() error = %v", err)
	}
	if n != 0 {
		t.Errorf("RecordCount() = %d, want 0", n)
	}
}

func TestReplaceRecordsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := sampleRecords()
	if err := db.ReplaceRecords(ctx, in); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	out, err := db.Records(ctx)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len(Records()) = %d, want %d", len(out), len(in))
	}
	for i := range in[:3] {
		if out[i] != in[i] {
			t.Errorf("record %d = %+v, want %+v", i, out[i], in[i])
		}
	}
	if !math.IsNaN(out[3].DelayMinutes) {
		t.Errorf("non-finite delay read back as %v, want NaN", out[3].DelayMinutes)
	}
	if err := out[3].Validate(); err == nil {
		t.Error("record with missing delay should stay malformed")
	}

	// A second replace drops the previous rows.
	if err := db.ReplaceRecords(ctx, in[:1]); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}
	n, err := db.RecordCount(ctx)
	if err != nil {
		t.Fatalf("RecordCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("RecordCount() = %d, want 1", n)
	}
}

func TestDelayMinutesFeedsThresholds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	records := make([]risk.Record, 0, 10)
	for i := 1; i <= 10; i++ {
		records = append(records, risk.Record{FlightID: "F", DelayMinutes: float64(i)})
	}
	records = append(records, risk.Record{FlightID: "BAD", DelayMinutes: math.Inf(1)})
	if err := db.ReplaceRecords(ctx, records); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	delays, err := db.DelayMinutes(ctx)
	if err != nil {
		t.Fatalf("DelayMinutes() error = %v", err)
	}
	if len(delays) != 10 {
		t.Fatalf("len(delays) = %d, want 10", len(delays))
	}

	th, err := risk.ComputeThresholds(delays)
	if err != nil {
		t.Fatalf("ComputeThresholds() error = %v", err)
	}
	if th.Q60 != 6 || th.Q90 != 9 {
		t.Errorf("thresholds = %+v, want {6 9}", th)
	}
}

func TestDatasetMeta(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceRecords(ctx, sampleRecords()); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	meta, err := db.DatasetMeta(ctx, 10)
	if err != nil {
		t.Fatalf("DatasetMeta() error = %v", err)
	}
	if meta.TotalFlights != 4 {
		t.Errorf("TotalFlights = %d, want 4", meta.TotalFlights)
	}
	wantAirports := []string{"BLR", "BOM", "DEL"}
	if len(meta.Airports) != len(wantAirports) {
		t.Fatalf("Airports = %v, want %v", meta.Airports, wantAirports)
	}
	for i, a := range wantAirports {
		if meta.Airports[i] != a {
			t.Errorf("Airports[%d] = %s, want %s", i, meta.Airports[i], a)
		}
	}
	if len(meta.Airlines) != 2 || meta.Airlines[0] != "6E" || meta.Airlines[1] != "AI" {
		t.Errorf("Airlines = %v, want [6E AI]", meta.Airlines)
	}
	if meta.FromTop["BOM"] != 3 || meta.FromTop["DEL"] != 1 {
		t.Errorf("FromTop = %v", meta.FromTop)
	}
	if meta.ToTop["DEL"] != 3 || meta.ToTop["BLR"] != 1 {
		t.Errorf("ToTop = %v", meta.ToTop)
	}
}

func TestDatasetMetaEmpty(t *testing.T) {
	db := setupTestDB(t)

	meta, err := db.DatasetMeta(context.Background(), 5)
	if err != nil {
		t.Fatalf("DatasetMeta() error = %v", err)
	}
	if meta.TotalFlights != 0 || len(meta.Airports) != 0 || len(meta.FromTop) != 0 {
		t.Errorf("DatasetMeta() on empty mirror = %+v", meta)
	}
}

func TestTopRoutes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceRecords(ctx, sampleRecords()); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	routes, err := db.TopRoutes(ctx, 10, 15)
	if err != nil {
		t.Fatalf("TopRoutes() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(routes))
	}

	top := routes[0]
	if top.Route != "BOM-DEL" || top.FlightCount != 3 {
		t.Errorf("top route = %+v, want BOM-DEL with 3 flights", top)
	}
	// NULL delays are ignored by AVG and by the on-time rate.
	if top.AvgDelay != 22.5 {
		t.Errorf("AvgDelay = %v, want 22.5", top.AvgDelay)
	}
	if top.OnTimeRate != 0.5 {
		t.Errorf("OnTimeRate = %v, want 0.5", top.OnTimeRate)
	}
	if top.P90Delay < 5 || top.P90Delay > 40 {
		t.Errorf("P90Delay = %v, want within [5, 40]", top.P90Delay)
	}

	limited, err := db.TopRoutes(ctx, 1, 15)
	if err != nil {
		t.Fatalf("TopRoutes() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestRefreshRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	last, err := db.LastRefreshRun(ctx)
	if err != nil {
		t.Fatalf("LastRefreshRun() error = %v", err)
	}
	if last != nil {
		t.Errorf("LastRefreshRun() = %+v, want nil before any refresh", last)
	}

	run, err := db.InsertRefreshRun(ctx, 42, risk.Thresholds{Q60: 12, Q90: 48}, risk.SourceDataset)
	if err != nil {
		t.Fatalf("InsertRefreshRun() error = %v", err)
	}

	last, err = db.LastRefreshRun(ctx)
	if err != nil {
		t.Fatalf("LastRefreshRun() error = %v", err)
	}
	if last == nil || last.ID != run.ID || last.Records != 42 || last.Thresholds.Q90 != 48 || last.Source != risk.SourceDataset {
		t.Errorf("LastRefreshRun() = %+v, want %+v", last, run)
	}
}

func TestTopAirlines(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceRecords(ctx, sampleRecords()); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	airlines, err := db.TopAirlines(ctx, 10)
	if err != nil {
		t.Fatalf("TopAirlines() error = %v", err)
	}
	want := []TopAirline{
		// NULL delays count as flights but not towards the statistics.
		{Airline: "6E", Flights: 2, AvgDepDelay: 20, P90DepDelay: 20},
		{Airline: "AI", Flights: 2, AvgDepDelay: 22.5, P90DepDelay: 36.5},
	}
	if len(airlines) != len(want) {
		t.Fatalf("TopAirlines() = %+v, want %d airlines", airlines, len(want))
	}
	for i := range want {
		got := airlines[i]
		if got.Airline != want[i].Airline || got.Flights != want[i].Flights {
			t.Errorf("airlines[%d] = %+v, want %+v", i, got, want[i])
		}
		if math.Abs(got.AvgDepDelay-want[i].AvgDepDelay) > 1e-9 || math.Abs(got.P90DepDelay-want[i].P90DepDelay) > 1e-9 {
			t.Errorf("airlines[%d] delays = %v/%v, want %v/%v", i, got.AvgDepDelay, got.P90DepDelay, want[i].AvgDepDelay, want[i].P90DepDelay)
		}
	}

	limited, err := db.TopAirlines(ctx, 1)
	if err != nil {
		t.Fatalf("TopAirlines() error = %v", err)
	}
	if len(limited) != 1 || limited[0].Airline != "6E" {
		t.Errorf("TopAirlines(1) = %+v, want 6E only", limited)
	}
}

func TestSlots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	records := append(sampleRecords(),
		risk.Record{FlightID: "AI103", ScheduledTime: "07:29", DelayMinutes: 10},
		risk.Record{FlightID: "AI104", ScheduledTime: "23:50", DelayMinutes: 2},
		risk.Record{FlightID: "AI105", ScheduledTime: "not a time", DelayMinutes: 3},
		risk.Record{FlightID: "AI106", DelayMinutes: 3},
	)
	if err := db.ReplaceRecords(ctx, records); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	slots, err := db.Slots(ctx, 15)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}

	tests := []struct {
		slot    string
		label   string
		flights int
		avg     float64
		isGreen bool
	}{
		{"06:00", "06:00-06:15", 1, 5, true},
		{"07:15", "07:15-07:30", 2, 25, false},
		{"08:00", "08:00-08:15", 1, 20, false},
		{"09:45", "09:45-10:00", 1, 0, false},
		{"23:45", "23:45-00:00", 1, 2, true},
	}
	if len(slots) != len(tests) {
		t.Fatalf("Slots() = %+v, want %d slots", slots, len(tests))
	}
	for i, tt := range tests {
		got := slots[i]
		if got.Slot != tt.slot || got.SlotLabel != tt.label || got.Flights != tt.flights {
			t.Errorf("slots[%d] = %+v, want %s (%s) with %d flights", i, got, tt.slot, tt.label, tt.flights)
		}
		if math.Abs(got.AvgDepDelay-tt.avg) > 1e-9 {
			t.Errorf("slots[%d].AvgDepDelay = %v, want %v", i, got.AvgDepDelay, tt.avg)
		}
		if got.IsGreen != tt.isGreen {
			t.Errorf("slots[%d].IsGreen = %v, want %v", i, got.IsGreen, tt.isGreen)
		}
		if got.P50DepDelay > got.P90DepDelay {
			t.Errorf("slots[%d] p50 %v above p90 %v", i, got.P50DepDelay, got.P90DepDelay)
		}
	}

	// A single delay is every quantile of its slot.
	if slots[0].P50DepDelay != 5 || slots[0].P90DepDelay != 5 {
		t.Errorf("slots[0] quantiles = %v/%v, want 5/5", slots[0].P50DepDelay, slots[0].P90DepDelay)
	}
}

func TestSlotsEmpty(t *testing.T) {
	db := setupTestDB(t)

	slots, err := db.Slots(context.Background(), 15)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Errorf("Slots() on empty mirror = %#v, want empty slice", slots)
	}
}
