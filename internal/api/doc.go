// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package api serves the cascade risk dashboard over HTTP using the chi router.

# Endpoints

	GET  /api/v1/health                        liveness, upstream breaker state, thresholds
	GET  /api/v1/health/live                   process liveness only
	GET  /api/v1/cascade                       summary, trends and one page of records
	GET  /api/v1/cascade/trends                hourly trends over the filtered reference set
	GET  /api/v1/cascade/thresholds            active thresholds
	POST /api/v1/cascade/thresholds/recompute  recompute thresholds from the reference set
	GET  /api/v1/dataset/meta                  totals, airports, airlines, busiest airports
	GET  /api/v1/analysis/top_routes           busiest routes with delay statistics
	GET  /api/v1/analysis/top_airlines         busiest carriers with delay statistics
	GET  /api/v1/analysis/slots                delay statistics per 15-minute slot
	GET  /metrics                              Prometheus exposition

# Responses

Every API response uses the same envelope:

	{"success": true, "data": {...}, "metadata": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "PAGE_OUT_OF_RANGE", "message": "...", "details": {...}}}

The cascade endpoints also answer in MessagePack when called with
format=msgpack; field names are the same as in JSON.

# Degraded Operation

An unreachable analytics service never produces a 5xx. The cascade view is
answered from the last stored snapshot, the reference mirror, or an empty
result, and carries "degraded": true.
*/
package api
