// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/cascade/internal/database"
	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/risk"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string                `json:"status"`
	DatabaseConnected bool                  `json:"database_connected"`
	Upstream          UpstreamHealth        `json:"upstream"`
	Thresholds        risk.ActiveThresholds `json:"thresholds"`
	LastRefresh       *database.RefreshRun  `json:"last_refresh,omitempty"`
	Uptime            float64               `json:"uptime_seconds"`
}

// UpstreamHealth describes the analytics service.
type UpstreamHealth struct {
	Reachable    bool   `json:"reachable"`
	CircuitState string `json:"circuit_state"`
}

// Health reports dependency status. It answers 200 even when degraded: the
// service keeps serving from fallbacks while the analytics service is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:     "healthy",
		Thresholds: h.cascade.Thresholds(),
		Uptime:     time.Since(h.startTime).Seconds(),
	}

	if h.upstream != nil {
		status.Upstream.CircuitState = h.upstream.State()
		status.Upstream.Reachable = h.upstream.Ping(ctx) == nil
	}
	if h.dataset != nil {
		status.DatabaseConnected = h.dataset.Ping(ctx) == nil
		if status.DatabaseConnected {
			run, err := h.dataset.LastRefreshRun(ctx)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to read last refresh run")
			}
			status.LastRefresh = run
		}
	}

	if !status.Upstream.Reachable || !status.DatabaseConnected {
		status.Status = "degraded"
	}
	WriteSuccess(w, r, status)
}

// HealthLive reports that the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]any{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}
