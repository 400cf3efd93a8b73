// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package upstream is the HTTP client for the flight analytics service that
produces cascade records.

Client Features:
  - Outbound rate limiting (golang.org/x/time/rate)
  - Automatic HTTP 429 handling with exponential backoff and Retry-After
  - Circuit breaker protection (sony/gobreaker)
  - Tolerant decoding of records whose field names vary between upstream
    versions, with numbers accepted either as JSON numbers or strings

Every transport failure, 5xx response or open breaker is reported as
ErrUnavailable so callers can fall back to stored data.
*/
package upstream
