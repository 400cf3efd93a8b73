// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/cascade/internal/metrics"
	"github.com/tomtom215/cascade/internal/risk"
)

// DatasetMeta summarises the mirrored reference dataset.
type DatasetMeta struct {
	TotalFlights int            `json:"total_flights"`
	Airports     []string       `json:"airports"`
	Airlines     []string       `json:"airlines"`
	FromTop      map[string]int `json:"from_top"`
	ToTop        map[string]int `json:"to_top"`
}

// TopRoute is one origin-destination pair ranked by traffic.
type TopRoute struct {
	Route       string  `json:"route"`
	FlightCount int     `json:"flight_count"`
	AvgDelay    float64 `json:"avg_delay"`
	P90Delay    float64 `json:"p90_delay"`
	OnTimeRate  float64 `json:"on_time_rate"`
}

// DatasetMeta returns totals, the distinct airports and airlines, and the
// topN busiest origins and destinations.
func (db *DB) DatasetMeta(ctx context.Context, topN int) (meta *DatasetMeta, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("dataset_meta", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	meta = &DatasetMeta{Airports: []string{}, Airlines: []string{}}
	if err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM flight_records").Scan(&meta.TotalFlights); err != nil {
		return nil, fmt.Errorf("failed to count flights: %w", err)
	}

	if meta.Airports, err = db.queryStrings(ctx, `
		SELECT airport FROM (
			SELECT origin AS airport FROM flight_records
			UNION
			SELECT destination FROM flight_records
		) WHERE airport <> '' ORDER BY airport`); err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}

	// Flight numbers carry the two-character carrier designator as prefix.
	if meta.Airlines, err = db.queryStrings(ctx, `
		SELECT DISTINCT upper(left(flight_id, 2)) AS airline FROM flight_records
		WHERE length(flight_id) > 2 ORDER BY airline`); err != nil {
		return nil, fmt.Errorf("failed to query airlines: %w", err)
	}

	if meta.FromTop, err = db.topCounts(ctx, "origin", topN); err != nil {
		return nil, err
	}
	if meta.ToTop, err = db.topCounts(ctx, "destination", topN); err != nil {
		return nil, err
	}
	return meta, nil
}

// topCounts counts flights per value of column. column is never user input.
func (db *DB) topCounts(ctx context.Context, column string, limit int) (map[string]int, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n FROM flight_records
		WHERE %[1]s <> ''
		GROUP BY %[1]s ORDER BY n DESC, %[1]s LIMIT ?`, column)

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top %s: %w", column, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan top %s: %w", column, err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (db *DB) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TopRoutes ranks routes by flight count. A flight is on time when its delay
// is below onTimeBelow minutes.
func (db *DB) TopRoutes(ctx context.Context, limit int, onTimeBelow float64) (routes []TopRoute, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("top_routes", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			origin || '-' || destination AS route,
			COUNT(*) AS flight_count,
			COALESCE(AVG(delay_minutes), 0) AS avg_delay,
			COALESCE(quantile_cont(delay_minutes, 0.9), 0) AS p90_delay,
			COALESCE(AVG(CASE WHEN delay_minutes < ? THEN 1.0 ELSE 0.0 END) FILTER (WHERE delay_minutes IS NOT NULL), 0) AS on_time_rate
		FROM flight_records
		WHERE origin <> '' AND destination <> ''
		GROUP BY origin, destination
		ORDER BY flight_count DESC, route
		LIMIT ?`, onTimeBelow, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top routes: %w", err)
	}
	defer rows.Close()

	routes = []TopRoute{}
	for rows.Next() {
		var r TopRoute
		if err = rows.Scan(&r.Route, &r.FlightCount, &r.AvgDelay, &r.P90Delay, &r.OnTimeRate); err != nil {
			return nil, fmt.Errorf("failed to scan top route: %w", err)
		}
		routes = append(routes, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top routes: %w", err)
	}
	return routes, nil
}

// TopAirline is one carrier ranked by traffic.
type TopAirline struct {
	Airline     string  `json:"airline"`
	Flights     int     `json:"flights"`
	AvgDepDelay float64 `json:"avg_dep_delay"`
	P90DepDelay float64 `json:"p90_dep_delay"`
}

// TopAirlines ranks carriers by flight count. The carrier is the flight
// number's two-character designator.
func (db *DB) TopAirlines(ctx context.Context, limit int) (airlines []TopAirline, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("top_airlines", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			upper(left(flight_id, 2)) AS airline,
			COUNT(*) AS flights,
			COALESCE(AVG(delay_minutes), 0) AS avg_dep_delay,
			COALESCE(quantile_cont(delay_minutes, 0.9), 0) AS p90_dep_delay
		FROM flight_records
		WHERE length(flight_id) > 2
		GROUP BY upper(left(flight_id, 2))
		ORDER BY flights DESC, airline
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top airlines: %w", err)
	}
	defer rows.Close()

	airlines = []TopAirline{}
	for rows.Next() {
		var a TopAirline
		if err = rows.Scan(&a.Airline, &a.Flights, &a.AvgDepDelay, &a.P90DepDelay); err != nil {
			return nil, fmt.Errorf("failed to scan top airline: %w", err)
		}
		airlines = append(airlines, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top airlines: %w", err)
	}
	return airlines, nil
}

// SlotMinutes is the width of a departure slot.
const SlotMinutes = 15

// SlotStat holds the departure delay statistics of one slot of the day.
type SlotStat struct {
	Slot        string  `json:"slot_15"`
	SlotLabel   string  `json:"slot_label"`
	Flights     int     `json:"flights"`
	AvgDepDelay float64 `json:"avg_dep_delay"`
	P50DepDelay float64 `json:"p50_dep_delay"`
	P90DepDelay float64 `json:"p90_dep_delay"`
	IsGreen     bool    `json:"is_green"`
}

// Slots groups flights into slots of SlotMinutes by scheduled time. Flights
// whose time does not parse are left out; flights without a delay count
// towards Flights but not the statistics. A slot is green when it has delay
// data and its p90 delay is below greenBelow minutes.
func (db *DB) Slots(ctx context.Context, greenBelow float64) (slots []SlotStat, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("slots", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT scheduled_time, delay_minutes FROM flight_records
		WHERE scheduled_time <> ''
		ORDER BY row_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	type slotAcc struct {
		flights int
		delays  []float64
	}
	acc := make(map[int]*slotAcc)
	for rows.Next() {
		var (
			scheduled string
			delay     sql.NullFloat64
		)
		if err = rows.Scan(&scheduled, &delay); err != nil {
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}
		t, ok := risk.ParseTimeOfDay(scheduled)
		if !ok {
			continue
		}
		slot := (t.Hour()*60 + t.Minute()) / SlotMinutes
		a, ok := acc[slot]
		if !ok {
			a = &slotAcc{}
			acc[slot] = a
		}
		a.flights++
		if delay.Valid && !math.IsNaN(delay.Float64) {
			a.delays = append(a.delays, delay.Float64)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}

	keys := make([]int, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	slots = make([]SlotStat, 0, len(keys))
	for _, k := range keys {
		a := acc[k]
		from := k * SlotMinutes
		to := from + SlotMinutes
		s := SlotStat{
			Slot:      clockLabel(from),
			SlotLabel: clockLabel(from) + "-" + clockLabel(to%(24*60)),
			Flights:   a.flights,
		}
		if len(a.delays) > 0 {
			sort.Float64s(a.delays)
			s.AvgDepDelay = stat.Mean(a.delays, nil)
			s.P50DepDelay = stat.Quantile(0.5, stat.LinInterp, a.delays, nil)
			s.P90DepDelay = stat.Quantile(0.9, stat.LinInterp, a.delays, nil)
			s.IsGreen = s.P90DepDelay < greenBelow
		}
		slots = append(slots, s)
	}
	return slots, nil
}

func clockLabel(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
