// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package cascade

import (
	"context"

	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/risk"
)

// TrendView is the hourly trend series over a whole filtered record set.
type TrendView struct {
	Trends     []risk.TrendBucket    `json:"trends"`
	TrendScope risk.Scope            `json:"trend_scope"`
	Summary    risk.Summary          `json:"summary"`
	Skipped    int                   `json:"skipped"`
	Thresholds risk.ActiveThresholds `json:"thresholds"`
	FilterKey  string                `json:"filter_key"`
	Degraded   bool                  `json:"degraded"`
}

// Trends reduces the filtered reference dataset. An unreadable mirror yields
// an empty, degraded series.
func (s *Service) Trends(ctx context.Context, f risk.Filter) (*TrendView, error) {
	active := s.thresholds.Current()
	view := &TrendView{
		Trends:     []risk.TrendBucket{},
		TrendScope: risk.ScopeFilteredDataset,
		Thresholds: active,
		FilterKey:  f.Key(),
	}
	if s.mirror == nil {
		view.Degraded = true
		return view, nil
	}

	records, err := s.mirror.Records(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Reference mirror unavailable for trends")
		view.Degraded = true
		return view, nil
	}

	filtered := risk.Apply(risk.ClassifyRecords(records, active.Thresholds), f)
	red := risk.Reduce(filtered, active.Thresholds)
	view.Trends = red.Trends
	view.Summary = red.Summary
	view.Skipped = red.Skipped
	return view, nil
}
