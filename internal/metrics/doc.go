// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package metrics provides Prometheus instrumentation for Cascade.

Collectors are registered with the default registry through promauto and
exposed at /metrics:

	curl http://localhost:8080/metrics

# Families

  - api_*: HTTP request counts, latency and in-flight requests
  - upstream_*: analytics service latency, retries and outcomes
  - circuit_breaker_*: breaker state and transitions around the upstream
  - cascade_*: resolved summaries by source, skipped records, degraded
    responses, and the active thresholds
  - duckdb_*: mirror query latency and errors
  - snapshot_*: last-known-good store reads and writes
  - cache_*: view cache hits and misses
*/
package metrics
