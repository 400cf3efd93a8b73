// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package services

import (
	"context"
	"time"

	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/logging"
)

// Refresher reloads the reference dataset. Satisfied by *cascade.Refresher.
type Refresher interface {
	Refresh(ctx context.Context) (*cascade.RefreshResult, error)
}

// RefreshService refreshes the reference dataset on a fixed interval.
type RefreshService struct {
	refresher Refresher
	interval  time.Duration
	onStart   bool
	name      string
}

// NewRefreshService creates the loop. With a non-positive interval it only
// runs the start-up refresh (when onStart is set) and then idles.
func NewRefreshService(refresher Refresher, interval time.Duration, onStart bool) *RefreshService {
	return &RefreshService{
		refresher: refresher,
		interval:  interval,
		onStart:   onStart,
		name:      "reference-refresh",
	}
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	if s.onStart {
		s.refresh(ctx)
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *RefreshService) refresh(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	result, err := s.refresher.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Reference refresh failed; keeping previous dataset")
		return
	}
	logging.Ctx(ctx).Debug().
		Int("records", result.Records).
		Bool("thresholds_changed", result.Changed).
		Dur("duration", result.Duration).
		Msg("Reference refresh finished")
}

func (s *RefreshService) String() string {
	return s.name
}
