// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cascade/internal/cache"
	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/metrics"
	"github.com/tomtom215/cascade/internal/risk"
	"github.com/tomtom215/cascade/internal/snapshot"
	"github.com/tomtom215/cascade/internal/upstream"
)

// Fetcher retrieves one page of cascade records.
type Fetcher interface {
	FetchCascade(ctx context.Context, q upstream.Query) (*upstream.Response, error)
}

// Mirror reads the stored reference dataset.
type Mirror interface {
	Records(ctx context.Context) ([]risk.Record, error)
}

// Fallback names where a degraded view came from.
type Fallback string

const (
	FallbackSnapshot Fallback = "snapshot"
	FallbackMirror   Fallback = "mirror"
	FallbackEmpty    Fallback = "empty"
)

// Request selects a view.
type Request struct {
	Filter  risk.Filter
	Page    int
	PerPage int

	// FilterKey is the fingerprint the client received with its previous
	// view. A different current fingerprint means the filter changed and
	// the client is served page 1.
	FilterKey string
}

// View is one dashboard panel: the summary, its trends and the page in view.
type View struct {
	Summary      risk.Summary          `json:"summary"`
	SummaryScope risk.SummaryScope     `json:"summary_scope"`
	Source       risk.Source           `json:"source"`
	Trends       []risk.TrendBucket    `json:"trends"`
	TrendScope   risk.Scope            `json:"trend_scope"`
	Page         risk.Page             `json:"page"`
	Thresholds   risk.ActiveThresholds `json:"thresholds"`
	SnapshotID   string                `json:"snapshot_id"`
	FilterKey    string                `json:"filter_key"`
	PageReset    bool                  `json:"page_reset"`
	Skipped      int                   `json:"skipped"`
	Degraded     bool                  `json:"degraded"`
	Fallback     Fallback              `json:"fallback,omitempty"`
	// DegradedReason is the upstream failure behind a degraded view.
	DegradedReason string    `json:"degraded_reason,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Options wires a Service. Snapshots and Cache are optional.
type Options struct {
	Upstream   Fetcher
	Mirror     Mirror
	Thresholds *risk.ThresholdStore
	Snapshots  snapshot.Store[View]
	Cache      *cache.LRU[*View]
}

// Service builds views. It is safe for concurrent use.
type Service struct {
	upstream   Fetcher
	mirror     Mirror
	thresholds *risk.ThresholdStore
	snapshots  snapshot.Store[View]
	cache      *cache.LRU[*View]
	now        func() time.Time
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	return &Service{
		upstream:   opts.Upstream,
		mirror:     opts.Mirror,
		thresholds: opts.Thresholds,
		snapshots:  opts.Snapshots,
		cache:      opts.Cache,
		now:        time.Now,
	}
}

// Thresholds returns the active thresholds.
func (s *Service) Thresholds() risk.ActiveThresholds {
	return s.thresholds.Current()
}

// View returns the view for req. Upstream failures degrade the view instead
// of failing it; the only errors are cancellation, an invalid page size and
// a page outside the result.
func (s *Service) View(ctx context.Context, req Request) (*View, error) {
	if req.PerPage <= 0 {
		return nil, risk.ErrInvalidPageSize
	}
	filterKey := req.Filter.Key()
	pageReset := false
	if req.FilterKey != "" && req.FilterKey != filterKey && req.Page != 1 {
		req.Page = 1
		pageReset = true
	}

	active := s.thresholds.Current()
	key := risk.NewViewKey(active.SnapshotID, req.Filter, req.Page, req.PerPage).String()
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			v := *cached
			v.PageReset = pageReset
			return &v, nil
		}
	}

	resp, err := s.upstream.FetchCascade(ctx, upstream.Query{
		RiskLevels: req.Filter.RiskLevels,
		Flight:     req.Filter.FlightSubstring,
		Page:       req.Page,
		PerPage:    req.PerPage,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		v, derr := s.degrade(ctx, req, active, err)
		if derr != nil {
			return nil, derr
		}
		v.PageReset = pageReset
		return v, nil
	}

	active = s.adoptUpstreamThresholds(ctx, resp.Meta, active)

	v, err := s.build(resp.Records, resp.Meta, req, active)
	if err != nil {
		return nil, err
	}
	v.PageReset = pageReset

	s.storeSnapshot(ctx, req, v)
	if s.cache != nil {
		// Keyed by the snapshot the view was computed with.
		key = risk.NewViewKey(active.SnapshotID, req.Filter, req.Page, req.PerPage).String()
		cached := *v
		cached.PageReset = false
		s.cache.Set(key, &cached)
	}
	return v, nil
}

// adoptUpstreamThresholds publishes valid upstream thresholds and returns
// the thresholds to classify with.
func (s *Service) adoptUpstreamThresholds(ctx context.Context, meta *risk.UpstreamMeta, active risk.ActiveThresholds) risk.ActiveThresholds {
	if meta == nil || meta.Thresholds == nil {
		return active
	}
	changed, err := s.thresholds.Swap(*meta.Thresholds, risk.SourceUpstream)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Ignoring upstream thresholds")
		return active
	}
	current := s.thresholds.Current()
	if changed {
		metrics.RecordThresholds(string(current.Source), current.Thresholds.Q60, current.Thresholds.Q90)
		logging.Ctx(ctx).Info().
			Float64("q60", current.Thresholds.Q60).
			Float64("q90", current.Thresholds.Q90).
			Str("snapshot_id", current.SnapshotID).
			Msg("Adopted upstream thresholds")
	}
	return current
}

// build classifies, filters and paginates records and resolves the summary.
// meta.Page > 0 means the records are already the requested page.
func (s *Service) build(records []risk.Record, meta *risk.UpstreamMeta, req Request, active risk.ActiveThresholds) (*View, error) {
	classified := risk.ClassifyRecords(records, active.Thresholds)
	filtered := risk.Apply(classified, req.Filter)

	var (
		page risk.Page
		err  error
	)
	if meta != nil && meta.Page > 0 {
		page, err = risk.PageOf(filtered, req.Page, req.PerPage, upstreamTotal(meta, len(filtered)))
	} else {
		page, err = risk.Paginate(filtered, risk.Filter{}, req.Page, req.PerPage)
	}
	if err != nil {
		return nil, err
	}

	res := risk.Resolve(page.Records, meta, active.Thresholds)
	local := res.Local()
	metrics.RecordSummary(string(res.Source()), local.Skipped)

	return &View{
		Summary:      res.Summary(),
		SummaryScope: res.Scope(),
		Source:       res.Source(),
		Trends:       local.Trends,
		TrendScope:   risk.ScopePage,
		Page:         page,
		Thresholds:   active,
		SnapshotID:   active.SnapshotID,
		FilterKey:    req.Filter.Key(),
		Skipped:      local.Skipped,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// upstreamTotal is the matching-record total for an upstream page.
func upstreamTotal(meta *risk.UpstreamMeta, fallback int) int {
	if meta.TotalAggregated > 0 {
		return meta.TotalAggregated
	}
	if meta.HasCounts() {
		total := 0
		for _, n := range meta.Counts {
			if n > 0 {
				total += n
			}
		}
		return total
	}
	return fallback
}

func snapshotKey(req Request) string {
	return fmt.Sprintf("%s/%d/%d", req.Filter.Key(), req.Page, req.PerPage)
}

func (s *Service) storeSnapshot(ctx context.Context, req Request, v *View) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Put(ctx, snapshotKey(req), v); err != nil {
		metrics.SnapshotOperations.WithLabelValues("put", "error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to store view snapshot")
		return
	}
	metrics.SnapshotOperations.WithLabelValues("put", "ok").Inc()
}
