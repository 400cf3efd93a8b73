// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package middleware provides HTTP middleware for the cascade API.

All middleware has the chi signature func(http.Handler) http.Handler and is
installed with r.Use:

  - RequestID: X-Request-ID propagation and logging context
  - AccessLog: one structured log line per request
  - PrometheusMetrics: request counters, latency histograms and the in-flight gauge

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Get("/cascade", h.Cascade)
	})

PrometheusMetrics labels requests with the matched chi route pattern rather
than the raw path, so query strings and path parameters never create new
series.
*/
package middleware
