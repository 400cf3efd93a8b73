// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import (
	"fmt"
	"math"
)

// Classify maps a delay to a tier. Thresholds are inclusive lower bounds, so a
// delay equal to Q90 is High and a delay equal to Q60 is Medium.
func Classify(delayMinutes float64, th Thresholds) (Tier, error) {
	if err := th.Validate(); err != nil {
		return TierUnset, err
	}
	if math.IsNaN(delayMinutes) {
		return TierUnset, fmt.Errorf("%w: delay is NaN", ErrMalformedRecord)
	}

	switch {
	case delayMinutes >= th.Q90:
		return TierHigh, nil
	case delayMinutes >= th.Q60:
		return TierMedium, nil
	default:
		return TierLow, nil
	}
}

// tierOf returns the record's preset tier, or classifies it. Preset tiers are
// never re-derived.
func tierOf(r *Record, th Thresholds) (Tier, error) {
	if err := r.Validate(); err != nil {
		return TierUnset, err
	}
	if r.RiskLevel.Valid() {
		return r.RiskLevel, nil
	}
	return Classify(r.DelayMinutes, th)
}

// ClassifyRecords returns a copy of records with RiskLevel filled in where it
// was unset. Malformed records are copied unchanged and left unclassified.
func ClassifyRecords(records []Record, th Thresholds) []Record {
	out := make([]Record, len(records))
	for i := range records {
		out[i] = records[i]
		if out[i].RiskLevel.Valid() {
			continue
		}
		out[i].RiskLevel = TierUnset
		if tier, err := tierOf(&out[i], th); err == nil {
			out[i].RiskLevel = tier
		}
	}
	return out
}
