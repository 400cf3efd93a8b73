// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package database

import (
	"context"
	"fmt"
	"time"
)

// Tables:
//   - flight_records: the reference dataset, one row per upstream record,
//     ordered by row_index
//   - refresh_runs: one row per completed reference refresh

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS flight_records (
			row_index INTEGER NOT NULL,
			flight_id TEXT NOT NULL,
			origin TEXT NOT NULL DEFAULT '',
			destination TEXT NOT NULL DEFAULT '',
			scheduled_time TEXT NOT NULL DEFAULT '',
			delay_minutes DOUBLE,
			affected_flights INTEGER NOT NULL DEFAULT 0,
			cascade_impact_minutes DOUBLE,
			mitigation_status TEXT NOT NULL DEFAULT 'Pending',
			risk_level TEXT NOT NULL DEFAULT '',
			loaded_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flight_records_route ON flight_records(origin, destination)`,
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id UUID PRIMARY KEY,
			finished_at TIMESTAMP NOT NULL,
			records INTEGER NOT NULL,
			q60 DOUBLE NOT NULL,
			q90 DOUBLE NOT NULL,
			source TEXT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}
