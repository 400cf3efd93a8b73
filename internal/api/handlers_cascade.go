// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/risk"
)

// readCascadeRequest parses and validates the cascade query. On failure the
// error response has been written and ok is false.
func (h *Handler) readCascadeRequest(w http.ResponseWriter, r *http.Request) (req CascadeRequest, rw *ResponseWriter, ok bool) {
	req = h.parseCascadeRequest(r)
	rw = NewResponseWriter(w, r).WithFormat(req.format())

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(rw, apiErr)
		return req, rw, false
	}
	if maxSize := h.apiConfig.MaxPageSize; maxSize > 0 && req.PerPage > maxSize {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("per_page must be at most %d", maxSize),
			map[string]any{"field": "per_page", "tag": "max", "value": req.PerPage})
		return req, rw, false
	}
	return req, rw, true
}

// Cascade returns the summary, trends and one page of records.
func (h *Handler) Cascade(w http.ResponseWriter, r *http.Request) {
	req, rw, ok := h.readCascadeRequest(w, r)
	if !ok {
		return
	}

	view, err := h.cascade.View(r.Context(), req.serviceRequest())
	if err != nil {
		h.respondCascadeError(rw, r, err)
		return
	}
	rw.Success(view)
}

// CascadeTrends returns the hourly trend series over the filtered dataset.
func (h *Handler) CascadeTrends(w http.ResponseWriter, r *http.Request) {
	req, rw, ok := h.readCascadeRequest(w, r)
	if !ok {
		return
	}

	trends, err := h.cascade.Trends(r.Context(), req.filter())
	if err != nil {
		h.respondCascadeError(rw, r, err)
		return
	}
	rw.Success(trends)
}

// Thresholds returns the active thresholds.
func (h *Handler) Thresholds(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.cascade.Thresholds())
}

// RecomputeThresholds recomputes thresholds from the reference dataset and
// publishes them.
func (h *Handler) RecomputeThresholds(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.recomputer == nil {
		rw.ServiceUnavailable("Reference dataset is not configured")
		return
	}

	result, err := h.recomputer.Recompute(r.Context())
	switch {
	case errors.Is(err, risk.ErrEmptyReference):
		rw.Error(http.StatusConflict, ErrCodeConflict, "Reference dataset is empty; refresh it before recomputing")
		return
	case err != nil:
		rw.DatabaseError(err)
		return
	}

	if result.Changed {
		h.ClearCache()
	}
	logging.Ctx(r.Context()).Info().
		Bool("changed", result.Changed).
		Float64("q60", result.Thresholds.Thresholds.Q60).
		Float64("q90", result.Thresholds.Thresholds.Q90).
		Msg("Thresholds recomputed on request")
	rw.Success(result)
}

// respondCascadeError maps service errors. Upstream failures never reach
// here; the service degrades instead.
func (h *Handler) respondCascadeError(rw *ResponseWriter, r *http.Request, err error) {
	var oor *risk.OutOfRangeError
	switch {
	case errors.As(err, &oor):
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodePageOutOfRange, oor.Error(), map[string]any{
			"page":        oor.Page,
			"total_pages": oor.TotalPages,
		})
	case errors.Is(err, risk.ErrInvalidPageSize):
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "per_page must be at least 1")
	case r.Context().Err() != nil:
		// Client went away; nobody reads this response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Cascade request cancelled")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Request cancelled")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("query", sanitizeLogValue(r.URL.RawQuery)).Msg("Cascade view failed")
		rw.InternalError("Failed to build cascade view")
	}
}
