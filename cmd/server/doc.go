// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package main is the entry point for the Cascade server.

Cascade sits in front of a flight analytics service and serves the delay
cascade dashboard: per-flight risk tiers, a summary of counts and impact, an
hourly trend series and a paged record table. When the analytics service is
unreachable the server keeps answering from the last view it served, then
from its DuckDB mirror of the reference dataset, and marks the response
degraded.

# Application Architecture

	RootSupervisor ("cascade")
	├── DataSupervisor ("data-layer")
	│   └── Reference refresh (pull dataset, mirror, recompute thresholds)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog with JSON or console output
 3. Database: DuckDB reference mirror
 4. Snapshots: BadgerDB or in-memory last-known-good views
 5. Upstream: HTTP client behind a gobreaker circuit breaker
 6. Thresholds: seeded from RISK_Q60 / RISK_Q90
 7. Supervisor Tree: suture v4
 8. HTTP Server: chi with request ids, access logs, CORS and rate limits

# Configuration

Common environment variables:

	UPSTREAM_URL           analytics service base URL
	HTTP_PORT              listen port (default 8080)
	DUCKDB_PATH            reference mirror file
	SNAPSHOT_PATH          BadgerDB directory; empty keeps snapshots in memory
	RISK_Q60, RISK_Q90     initial tier thresholds in minutes
	RISK_REFRESH_INTERVAL  reference refresh cadence
	LOG_LEVEL, LOG_FORMAT  zerolog settings

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for
up to 10 seconds, then the snapshot store and database are closed.
*/
package main
