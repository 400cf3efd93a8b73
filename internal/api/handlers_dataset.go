// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"net/http"

	"github.com/tomtom215/cascade/internal/cache"
)

const (
	defaultTopRoutes   = 10
	defaultTopAirlines = 10
	defaultTopAirports = 5
)

// DatasetMeta returns totals, airports, airlines and the busiest origins and
// destinations of the reference dataset.
func (h *Handler) DatasetMeta(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.dataset == nil {
		rw.ServiceUnavailable("Reference dataset is not configured")
		return
	}

	req := DatasetMetaRequest{Top: getIntParam(r, "top", defaultTopAirports)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(rw, apiErr)
		return
	}

	key := cache.GenerateKey("DatasetMeta", req)
	if cached, ok := h.cache.Get(key); ok {
		rw.Success(cached)
		return
	}

	meta, err := h.dataset.DatasetMeta(r.Context(), req.Top)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	h.cache.Set(key, meta)
	rw.Success(meta)
}

// TopRoutes ranks routes by traffic with their delay statistics. A flight is
// on time when its delay is below the active Q60 threshold.
func (h *Handler) TopRoutes(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.dataset == nil {
		rw.ServiceUnavailable("Reference dataset is not configured")
		return
	}

	req := TopRoutesRequest{Limit: getIntParam(r, "limit", defaultTopRoutes)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(rw, apiErr)
		return
	}

	active := h.cascade.Thresholds()
	key := cache.GenerateKey("TopRoutes", map[string]any{
		"limit":       req.Limit,
		"snapshot_id": active.SnapshotID,
	})
	if cached, ok := h.cache.Get(key); ok {
		rw.Success(cached)
		return
	}

	routes, err := h.dataset.TopRoutes(r.Context(), req.Limit, active.Thresholds.Q60)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	h.cache.Set(key, routes)
	rw.Success(routes)
}

// TopAirlines ranks carriers by traffic with their departure delay statistics.
func (h *Handler) TopAirlines(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.dataset == nil {
		rw.ServiceUnavailable("Reference dataset is not configured")
		return
	}

	req := TopAirlinesRequest{Limit: getIntParam(r, "limit", defaultTopAirlines)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(rw, apiErr)
		return
	}

	key := cache.GenerateKey("TopAirlines", req)
	if cached, ok := h.cache.Get(key); ok {
		rw.Success(cached)
		return
	}

	airlines, err := h.dataset.TopAirlines(r.Context(), req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	h.cache.Set(key, airlines)
	rw.Success(airlines)
}

// Slots returns departure delay statistics per 15-minute slot. A slot is
// green when its p90 delay is below the active Q60 threshold.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.dataset == nil {
		rw.ServiceUnavailable("Reference dataset is not configured")
		return
	}

	active := h.cascade.Thresholds()
	key := cache.GenerateKey("Slots", map[string]any{"snapshot_id": active.SnapshotID})
	if cached, ok := h.cache.Get(key); ok {
		rw.Success(cached)
		return
	}

	slots, err := h.dataset.Slots(r.Context(), active.Thresholds.Q60)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	h.cache.Set(key, slots)
	rw.Success(slots)
}
