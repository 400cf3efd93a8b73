// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cascade/internal/database"
	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/metrics"
	"github.com/tomtom215/cascade/internal/risk"
)

// DatasetFetcher pulls the full reference dataset.
type DatasetFetcher interface {
	FetchAll(ctx context.Context) ([]risk.Record, error)
}

// Reference is the writable reference store.
type Reference interface {
	Mirror
	ReplaceRecords(ctx context.Context, records []risk.Record) error
	DelayMinutes(ctx context.Context) ([]float64, error)
	InsertRefreshRun(ctx context.Context, records int, th risk.Thresholds, source risk.ThresholdSource) (*database.RefreshRun, error)
}

// Clearer drops cached views.
type Clearer interface {
	Clear()
}

// RefreshResult describes one refresh or recomputation.
type RefreshResult struct {
	Records    int                   `json:"records"`
	Thresholds risk.ActiveThresholds `json:"thresholds"`
	Changed    bool                  `json:"changed"`
	Duration   time.Duration         `json:"duration"`
}

// Refresher keeps the reference mirror and the dataset thresholds current.
type Refresher struct {
	fetcher    DatasetFetcher
	reference  Reference
	thresholds *risk.ThresholdStore
	cache      Clearer
}

// NewRefresher creates a Refresher. cache may be nil.
func NewRefresher(fetcher DatasetFetcher, reference Reference, thresholds *risk.ThresholdStore, cache Clearer) *Refresher {
	return &Refresher{fetcher: fetcher, reference: reference, thresholds: thresholds, cache: cache}
}

// Refresh pulls the dataset, replaces the mirror and recomputes thresholds.
// Thresholds supplied by the analytics service stay in force; dataset
// thresholds are published only while no upstream pair is active.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()

	records, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch reference dataset: %w", err)
	}
	if err := r.reference.ReplaceRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("store reference dataset: %w", err)
	}
	metrics.RecordRefresh(len(records))

	force := r.thresholds.Current().Source != risk.SourceUpstream
	result, err := r.recompute(ctx, force)
	if err != nil {
		return nil, err
	}
	result.Records = len(records)
	result.Duration = time.Since(start)

	logging.Info().
		Int("records", result.Records).
		Bool("thresholds_changed", result.Changed).
		Dur("duration", result.Duration).
		Msg("Reference dataset refreshed")
	return result, nil
}

// Recompute recomputes thresholds from the stored dataset and publishes them.
func (r *Refresher) Recompute(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	result, err := r.recompute(ctx, true)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (r *Refresher) recompute(ctx context.Context, publish bool) (*RefreshResult, error) {
	delays, err := r.reference.DelayMinutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("read reference delays: %w", err)
	}
	th, err := risk.ComputeThresholds(delays)
	if err != nil {
		return nil, fmt.Errorf("compute thresholds: %w", err)
	}

	result := &RefreshResult{Records: len(delays)}
	if publish {
		changed, err := r.thresholds.Swap(th, risk.SourceDataset)
		if err != nil {
			return nil, fmt.Errorf("publish thresholds: %w", err)
		}
		result.Changed = changed
	}
	result.Thresholds = r.thresholds.Current()

	if result.Changed {
		if r.cache != nil {
			r.cache.Clear()
		}
		metrics.RecordThresholds(string(result.Thresholds.Source), th.Q60, th.Q90)
		logging.Info().
			Float64("q60", th.Q60).
			Float64("q90", th.Q90).
			Str("snapshot_id", result.Thresholds.SnapshotID).
			Msg("Published dataset thresholds")
	}

	if _, err := r.reference.InsertRefreshRun(ctx, len(delays), th, risk.SourceDataset); err != nil {
		logging.Warn().Err(err).Msg("Failed to record refresh run")
	}
	return result, nil
}
