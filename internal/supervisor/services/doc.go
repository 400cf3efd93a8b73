// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package services adapts Cascade components to suture's Serve(ctx) error
lifecycle.

# Available Services

HTTPServerService wraps an *http.Server. ListenAndServe runs in a goroutine;
context cancellation triggers Shutdown with a bounded drain timeout.
http.ErrServerClosed is not treated as a failure.

RefreshService pulls the full reference dataset from the analytics service
on a fixed interval, mirrors it into DuckDB and recomputes the delay
thresholds. A failed refresh is logged and retried on the next tick; it does
not return from Serve, so the supervisor only restarts the loop on panic.

Each service implements fmt.Stringer so supervisor events name it.
*/
package services
