// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

// Tier is a discrete risk classification. The zero value means unclassified.
type Tier string

const (
	TierUnset  Tier = ""
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Tiers lists the known tiers from highest to lowest.
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

// ParseTier matches a tier name case-insensitively. Unknown names, including
// tiers this engine does not model such as "critical", return false.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TierHigh, true
	case "medium":
		return TierMedium, true
	case "low":
		return TierLow, true
	default:
		return TierUnset, false
	}
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// MitigationStatus tracks the operational response to a flight's risk.
type MitigationStatus string

const (
	MitigationPending    MitigationStatus = "Pending"
	MitigationInProgress MitigationStatus = "InProgress"
	MitigationResolved   MitigationStatus = "Resolved"
)

// ParseMitigationStatus accepts the canonical names plus spaced, dashed and
// snake_case spellings. Anything else maps to Pending.
func ParseMitigationStatus(s string) MitigationStatus {
	norm := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(s))
	switch norm {
	case "inprogress":
		return MitigationInProgress
	case "resolved":
		return MitigationResolved
	default:
		return MitigationPending
	}
}

// Record is one observed flight's risk-relevant facts.
type Record struct {
	FlightID             string           `json:"flight_id"`
	Origin               string           `json:"origin"`
	Destination          string           `json:"destination"`
	ScheduledTime        string           `json:"scheduled_time"`
	DelayMinutes         float64          `json:"delay_minutes"`
	AffectedFlights      int              `json:"affected_flights"`
	CascadeImpactMinutes float64          `json:"cascade_impact_minutes"`
	MitigationStatus     MitigationStatus `json:"mitigation_status"`
	RiskLevel            Tier             `json:"risk_level,omitempty"`
}

// Validate returns ErrMalformedRecord for negative or non-finite numeric fields.
func (r *Record) Validate() error {
	switch {
	case !finiteNonNegative(r.DelayMinutes):
		return fmt.Errorf("%w: flight %q delay_minutes=%v", ErrMalformedRecord, r.FlightID, r.DelayMinutes)
	case r.AffectedFlights < 0:
		return fmt.Errorf("%w: flight %q affected_flights=%d", ErrMalformedRecord, r.FlightID, r.AffectedFlights)
	case !finiteNonNegative(r.CascadeImpactMinutes):
		return fmt.Errorf("%w: flight %q cascade_impact_minutes=%v", ErrMalformedRecord, r.FlightID, r.CascadeImpactMinutes)
	}
	return nil
}

// MarshalJSON writes non-finite numbers as null, since JSON cannot carry NaN.
// Malformed records stay visible in a page even though summaries skip them.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FlightID             string           `json:"flight_id"`
		Origin               string           `json:"origin"`
		Destination          string           `json:"destination"`
		ScheduledTime        string           `json:"scheduled_time"`
		DelayMinutes         *float64         `json:"delay_minutes"`
		AffectedFlights      int              `json:"affected_flights"`
		CascadeImpactMinutes *float64         `json:"cascade_impact_minutes"`
		MitigationStatus     MitigationStatus `json:"mitigation_status"`
		RiskLevel            Tier             `json:"risk_level,omitempty"`
	}{
		FlightID:             r.FlightID,
		Origin:               r.Origin,
		Destination:          r.Destination,
		ScheduledTime:        r.ScheduledTime,
		DelayMinutes:         finiteOrNil(r.DelayMinutes),
		AffectedFlights:      r.AffectedFlights,
		CascadeImpactMinutes: finiteOrNil(r.CascadeImpactMinutes),
		MitigationStatus:     r.MitigationStatus,
		RiskLevel:            r.RiskLevel,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
