// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package database mirrors the reference flight dataset into DuckDB.

The mirror serves three purposes:
  - the delay column that thresholds are recomputed from
  - a last-resort record set when the analytics service is unavailable
  - dataset level analytics (dataset meta, top routes)

Rows keep the order in which the analytics service returned them so that
position-based trend buckets stay stable across reloads.

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	if err := db.ReplaceRecords(ctx, records); err != nil {
	    return err
	}
	delays, err := db.DelayMinutes(ctx)
*/
package database
