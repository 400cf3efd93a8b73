// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cascade/internal/metrics"
	"github.com/tomtom215/cascade/internal/risk"
)

const recordsTable = "flight_records"

// ReplaceRecords atomically replaces the mirrored dataset. Non-finite numbers
// are stored as NULL and read back as NaN so they stay malformed.
func (db *DB) ReplaceRecords(ctx context.Context, records []risk.Record) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("replace", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	if _, err = tx.ExecContext(ctx, "DELETE FROM flight_records"); err != nil {
		return fmt.Errorf("failed to clear flight records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO flight_records (
		row_index, flight_id, origin, destination, scheduled_time, delay_minutes,
		affected_flights, cascade_impact_minutes, mitigation_status, risk_level, loaded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	loadedAt := time.Now().UTC()
	for i := range records {
		r := &records[i]
		if _, err = stmt.ExecContext(ctx,
			i, r.FlightID, r.Origin, r.Destination, r.ScheduledTime, finiteOrNull(r.DelayMinutes),
			r.AffectedFlights, finiteOrNull(r.CascadeImpactMinutes), string(r.MitigationStatus), string(r.RiskLevel), loadedAt,
		); err != nil {
			return fmt.Errorf("failed to insert record %d (%s): %w", i, r.FlightID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flight records: %w", err)
	}
	return nil
}

// Records returns the mirrored dataset in upstream order.
func (db *DB) Records(ctx context.Context) (out []risk.Record, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT flight_id, origin, destination, scheduled_time, delay_minutes,
		       affected_flights, cascade_impact_minutes, mitigation_status, risk_level
		FROM flight_records
		ORDER BY row_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight records: %w", err)
	}
	defer rows.Close()

	out = []risk.Record{}
	for rows.Next() {
		var (
			r             risk.Record
			delay, impact sql.NullFloat64
			status, tier  string
		)
		if err = rows.Scan(&r.FlightID, &r.Origin, &r.Destination, &r.ScheduledTime, &delay,
			&r.AffectedFlights, &impact, &status, &tier); err != nil {
			return nil, fmt.Errorf("failed to scan flight record: %w", err)
		}
		r.DelayMinutes = nullToNaN(delay)
		r.CascadeImpactMinutes = nullToNaN(impact)
		r.MitigationStatus = risk.ParseMitigationStatus(status)
		if t, ok := risk.ParseTier(tier); ok {
			r.RiskLevel = t
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flight records: %w", err)
	}
	return out, nil
}

// DelayMinutes returns every valid delay in the mirror, the input to
// threshold recomputation.
func (db *DB) DelayMinutes(ctx context.Context) (out []float64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("delays", recordsTable, time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT delay_minutes FROM flight_records
		WHERE delay_minutes IS NOT NULL AND delay_minutes >= 0
		ORDER BY delay_minutes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query delays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d float64
		if err = rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan delay: %w", err)
		}
		out = append(out, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delays: %w", err)
	}
	return out, nil
}

// RecordCount returns the number of mirrored records.
func (db *DB) RecordCount(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM flight_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count flight records: %w", err)
	}
	return n, nil
}

// RefreshRun describes one completed reference refresh.
type RefreshRun struct {
	ID         string               `json:"id"`
	FinishedAt time.Time            `json:"finished_at"`
	Records    int                  `json:"records"`
	Thresholds risk.Thresholds      `json:"thresholds"`
	Source     risk.ThresholdSource `json:"source"`
}

// InsertRefreshRun logs a completed refresh.
func (db *DB) InsertRefreshRun(ctx context.Context, records int, th risk.Thresholds, source risk.ThresholdSource) (*RefreshRun, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	run := &RefreshRun{
		ID:         uuid.New().String(),
		FinishedAt: time.Now().UTC(),
		Records:    records,
		Thresholds: th,
		Source:     source,
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO refresh_runs (id, finished_at, records, q60, q90, source) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.FinishedAt, run.Records, th.Q60, th.Q90, string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to insert refresh run: %w", err)
	}
	return run, nil
}

// LastRefreshRun returns the most recent refresh, or nil if none ran yet.
func (db *DB) LastRefreshRun(ctx context.Context) (*RefreshRun, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var (
		run    RefreshRun
		source string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT CAST(id AS TEXT), finished_at, records, q60, q90, source
		FROM refresh_runs ORDER BY finished_at DESC LIMIT 1`).
		Scan(&run.ID, &run.FinishedAt, &run.Records, &run.Thresholds.Q60, &run.Thresholds.Q90, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last refresh run: %w", err)
	}
	run.Source = risk.ThresholdSource(source)
	return &run, nil
}

func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
