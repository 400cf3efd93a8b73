// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package cascade

import (
	"context"
	"errors"

	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/metrics"
	"github.com/tomtom215/cascade/internal/risk"
	"github.com/tomtom215/cascade/internal/snapshot"
)

// degrade answers req without the analytics service: last-known-good
// snapshot, then the reference mirror, then an empty view.
func (s *Service) degrade(ctx context.Context, req Request, active risk.ActiveThresholds, cause error) (*View, error) {
	log := logging.Ctx(ctx)
	log.Warn().Err(cause).Str("filter_key", req.Filter.Key()).Int("page", req.Page).Msg("Upstream unavailable, serving fallback view")

	if v := s.fromSnapshot(ctx, req); v != nil {
		return markDegraded(v, FallbackSnapshot, cause), nil
	}

	if s.mirror != nil {
		records, err := s.mirror.Records(ctx)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Reference mirror unavailable")
		case len(records) > 0:
			v, err := s.build(records, nil, req, active)
			if err != nil {
				return nil, err
			}
			return markDegraded(v, FallbackMirror, cause), nil
		}
	}

	return markDegraded(s.emptyView(req, active), FallbackEmpty, cause), nil
}

func (s *Service) fromSnapshot(ctx context.Context, req Request) *View {
	if s.snapshots == nil {
		return nil
	}
	v, storedAt, err := s.snapshots.Get(ctx, snapshotKey(req))
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		metrics.SnapshotOperations.WithLabelValues("get", "miss").Inc()
		return nil
	case err != nil:
		metrics.SnapshotOperations.WithLabelValues("get", "error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to read view snapshot")
		return nil
	}
	metrics.SnapshotOperations.WithLabelValues("get", "ok").Inc()
	logging.Ctx(ctx).Debug().Time("stored_at", storedAt).Msg("Serving view snapshot")
	return v
}

// emptyView is page 1 of nothing: zero counts, no trends.
func (s *Service) emptyView(req Request, active risk.ActiveThresholds) *View {
	res := risk.Resolve(nil, nil, active.Thresholds)
	return &View{
		Summary:      res.Summary(),
		SummaryScope: res.Scope(),
		Source:       res.Source(),
		Trends:       []risk.TrendBucket{},
		TrendScope:   risk.ScopePage,
		Page: risk.Page{
			Records:    []risk.Record{},
			PageNumber: 1,
			PageSize:   req.PerPage,
			TotalPages: 1,
		},
		Thresholds:  active,
		SnapshotID:  active.SnapshotID,
		FilterKey:   req.Filter.Key(),
		GeneratedAt: s.now().UTC(),
	}
}

func markDegraded(v *View, fallback Fallback, cause error) *View {
	v.Degraded = true
	v.Fallback = fallback
	v.DegradedReason = cause.Error()
	metrics.CascadeDegraded.WithLabelValues(string(fallback)).Inc()
	return v
}
