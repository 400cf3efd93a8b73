// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/risk"
)

// CascadeRequest is the validated query of GET /cascade and /cascade/trends.
type CascadeRequest struct {
	RiskLevels []string `query:"risk_level" validate:"max=3,dive,risk_level"`
	Flight     string   `query:"flight" validate:"max=64"`
	Page       int      `query:"page" validate:"min=1"`
	PerPage    int      `query:"per_page" validate:"min=1,max=1000"`
	FilterKey  string   `query:"filter_key" validate:"omitempty,hexadecimal,len=16"`
	Format     string   `query:"format" validate:"omitempty,oneof=json msgpack"`
}

// TopRoutesRequest is the validated query of GET /analysis/top_routes.
type TopRoutesRequest struct {
	Limit int `query:"limit" validate:"min=1,max=100"`
}

// TopAirlinesRequest is the validated query of GET /analysis/top_airlines.
type TopAirlinesRequest struct {
	Limit int `query:"limit" validate:"min=1,max=100"`
}

// DatasetMetaRequest is the validated query of GET /dataset/meta.
type DatasetMetaRequest struct {
	Top int `query:"top" validate:"min=1,max=50"`
}

// parseCascadeRequest reads the cascade query. Malformed integers fall back
// to their defaults; out-of-bound values are left for validation.
func (h *Handler) parseCascadeRequest(r *http.Request) CascadeRequest {
	q := r.URL.Query()

	var levels []string
	for _, v := range q["risk_level"] {
		levels = append(levels, parseCommaSeparated(v)...)
	}

	return CascadeRequest{
		RiskLevels: dedupeRiskLevels(levels),
		Flight:     strings.TrimSpace(q.Get("flight")),
		Page:       getIntParam(r, "page", 1),
		PerPage:    getIntParam(r, "per_page", h.apiConfig.DefaultPageSize),
		FilterKey:  strings.ToLower(q.Get("filter_key")),
		Format:     strings.ToLower(q.Get("format")),
	}
}

// dedupeRiskLevels drops repeated tiers, ignoring case, so that repeats do
// not count against the tier limit. Unknown values are kept for validation.
func dedupeRiskLevels(levels []string) []string {
	if len(levels) < 2 {
		return levels
	}
	out := make([]string, 0, len(levels))
	seen := make(map[string]bool, len(levels))
	for _, s := range levels {
		key := strings.ToLower(s)
		if t, ok := risk.ParseTier(s); ok {
			key = string(t)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// filter converts the validated tiers. Duplicates are dropped.
func (req *CascadeRequest) filter() risk.Filter {
	f := risk.Filter{FlightSubstring: req.Flight}
	seen := make(map[risk.Tier]bool, len(req.RiskLevels))
	for _, s := range req.RiskLevels {
		if t, ok := risk.ParseTier(s); ok && !seen[t] {
			seen[t] = true
			f.RiskLevels = append(f.RiskLevels, t)
		}
	}
	return f
}

func (req *CascadeRequest) serviceRequest() cascade.Request {
	return cascade.Request{
		Filter:    req.filter(),
		Page:      req.Page,
		PerPage:   req.PerPage,
		FilterKey: req.FilterKey,
	}
}

func (req *CascadeRequest) format() Format {
	if req.Format == string(FormatMsgPack) {
		return FormatMsgPack
	}
	return FormatJSON
}
