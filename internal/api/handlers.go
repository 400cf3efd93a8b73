// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"context"
	"time"

	"github.com/tomtom215/cascade/internal/cache"
	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/config"
	"github.com/tomtom215/cascade/internal/database"
	"github.com/tomtom215/cascade/internal/risk"
)

// CascadeService answers dashboard views.
type CascadeService interface {
	View(ctx context.Context, req cascade.Request) (*cascade.View, error)
	Trends(ctx context.Context, f risk.Filter) (*cascade.TrendView, error)
	Thresholds() risk.ActiveThresholds
}

// Recomputer recomputes thresholds from the reference dataset.
type Recomputer interface {
	Recompute(ctx context.Context) (*cascade.RefreshResult, error)
}

// Dataset reads analytics from the reference mirror.
type Dataset interface {
	DatasetMeta(ctx context.Context, topN int) (*database.DatasetMeta, error)
	TopRoutes(ctx context.Context, limit int, onTimeBelow float64) ([]database.TopRoute, error)
	TopAirlines(ctx context.Context, limit int) ([]database.TopAirline, error)
	Slots(ctx context.Context, greenBelow float64) ([]database.SlotStat, error)
	LastRefreshRun(ctx context.Context) (*database.RefreshRun, error)
	Ping(ctx context.Context) error
}

// UpstreamStatus reports on the analytics service.
type UpstreamStatus interface {
	State() string
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Handler. Recomputer, Dataset and Upstream
// may be nil; the matching endpoints then report the feature as unavailable.
type Deps struct {
	Cascade    CascadeService
	Recomputer Recomputer
	Dataset    Dataset
	Upstream   UpstreamStatus
}

// Handler holds the HTTP handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: liveness and health
//   - handlers_cascade.go: cascade view, trends and thresholds
//   - handlers_dataset.go: reference dataset analytics
type Handler struct {
	cascade    CascadeService
	recomputer Recomputer
	dataset    Dataset
	upstream   UpstreamStatus
	apiConfig  config.APIConfig
	cache      *cache.LRU[any]
	startTime  time.Time
}

// datasetCacheSize bounds the dataset analytics cache.
const datasetCacheSize = 256

// NewHandler creates a Handler. Dataset analytics are cached for
// cfg.CacheTTL; the cache is cleared whenever thresholds are recomputed.
func NewHandler(cfg *config.APIConfig, deps Deps) *Handler {
	return &Handler{
		cascade:    deps.Cascade,
		recomputer: deps.Recomputer,
		dataset:    deps.Dataset,
		upstream:   deps.Upstream,
		apiConfig:  *cfg,
		cache:      cache.NewLRU[any]("dataset", datasetCacheSize, cfg.CacheTTL),
		startTime:  time.Now(),
	}
}

// ClearCache drops cached dataset analytics.
func (h *Handler) ClearCache() {
	h.cache.Clear()
}
