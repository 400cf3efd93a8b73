// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Thresholds are the inclusive lower bounds of the Medium (Q60) and High (Q90)
// tiers, taken from the delay distribution of a reference snapshot.
type Thresholds struct {
	Q60 float64 `json:"q60"`
	Q90 float64 `json:"q90"`
}

// Validate returns ErrInvalidThresholds unless 0 <= Q60 <= Q90 and both are finite.
func (t Thresholds) Validate() error {
	if !finiteNonNegative(t.Q60) || !finiteNonNegative(t.Q90) || t.Q60 > t.Q90 {
		return fmt.Errorf("%w: q60=%v q90=%v", ErrInvalidThresholds, t.Q60, t.Q90)
	}
	return nil
}

// ComputeThresholds returns the 60th and 90th percentiles of delays using
// linear interpolation. Negative and non-finite values are ignored.
func ComputeThresholds(delays []float64) (Thresholds, error) {
	clean := make([]float64, 0, len(delays))
	for _, d := range delays {
		if finiteNonNegative(d) {
			clean = append(clean, d)
		}
	}
	if len(clean) == 0 {
		return Thresholds{}, ErrEmptyReference
	}
	sort.Float64s(clean)

	return Thresholds{
		Q60: stat.Quantile(0.6, stat.LinInterp, clean, nil),
		Q90: stat.Quantile(0.9, stat.LinInterp, clean, nil),
	}, nil
}

// ThresholdSource records where the active thresholds came from.
type ThresholdSource string

const (
	SourceConfig   ThresholdSource = "config"
	SourceUpstream ThresholdSource = "upstream"
	SourceDataset  ThresholdSource = "dataset"
)

// ActiveThresholds is an immutable published threshold set. SnapshotID changes
// on every swap and is part of every cache key derived from these thresholds.
type ActiveThresholds struct {
	Thresholds Thresholds      `json:"thresholds"`
	SnapshotID string          `json:"snapshot_id"`
	Source     ThresholdSource `json:"source"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ThresholdStore publishes thresholds to concurrent readers. Swaps are atomic:
// a reader sees either the old pair or the new pair, never a mix.
type ThresholdStore struct {
	current atomic.Pointer[ActiveThresholds]
}

// NewThresholdStore validates initial and publishes it with a fresh snapshot id.
func NewThresholdStore(initial Thresholds, source ThresholdSource) (*ThresholdStore, error) {
	s := &ThresholdStore{}
	if _, err := s.Swap(initial, source); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the published thresholds.
func (s *ThresholdStore) Current() ActiveThresholds {
	return *s.current.Load()
}

// Swap validates and publishes th. When th equals the published pair the
// existing snapshot is kept and changed is false; a different source is
// still recorded so the provenance of the pair stays accurate.
func (s *ThresholdStore) Swap(th Thresholds, source ThresholdSource) (changed bool, err error) {
	if err := th.Validate(); err != nil {
		return false, err
	}
	for {
		old := s.current.Load()
		if old != nil && sameThresholds(old.Thresholds, th) {
			if old.Source == source {
				return false, nil
			}
			next := *old
			next.Source = source
			next.UpdatedAt = time.Now().UTC()
			if s.current.CompareAndSwap(old, &next) {
				return false, nil
			}
			continue
		}
		next := &ActiveThresholds{
			Thresholds: th,
			SnapshotID: uuid.New().String(),
			Source:     source,
			UpdatedAt:  time.Now().UTC(),
		}
		if s.current.CompareAndSwap(old, next) {
			return true, nil
		}
	}
}

func sameThresholds(a, b Thresholds) bool {
	const eps = 1e-9
	return math.Abs(a.Q60-b.Q60) < eps && math.Abs(a.Q90-b.Q90) < eps
}
