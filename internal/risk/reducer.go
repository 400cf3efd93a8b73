// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

// Summary is the aggregate shown above the record table.
type Summary struct {
	Total            int     `json:"total"`
	High             int     `json:"high"`
	Medium           int     `json:"medium"`
	Low              int     `json:"low"`
	TotalAffected    int     `json:"total_affected"`
	AvgCascadeImpact float64 `json:"avg_cascade_impact"`
}

// Reduction is the locally derived view of a record set.
type Reduction struct {
	Summary Summary       `json:"summary"`
	Trends  []TrendBucket `json:"trends"`
	Skipped int           `json:"skipped"`
}

// Reduce classifies and aggregates records in a single pass. Records with a
// preset tier keep it. Malformed records, and unclassified records when th is
// invalid, are skipped and counted rather than aborting the set. Trend buckets
// are filled from the same records, so per-tier bucket sums equal the
// summary's tier counts.
func Reduce(records []Record, th Thresholds) Reduction {
	var (
		sum         Summary
		series      TrendSeries
		impactTotal float64
		skipped     int
	)

	for i := range records {
		r := &records[i]
		tier, err := tierOf(r, th)
		if err != nil {
			skipped++
			continue
		}

		sum.Total++
		switch tier {
		case TierHigh:
			sum.High++
		case TierMedium:
			sum.Medium++
		case TierLow:
			sum.Low++
		}
		sum.TotalAffected += r.AffectedFlights
		impactTotal += r.CascadeImpactMinutes

		series.Increment(Bucket(r.ScheduledTime, i), tier)
	}

	if sum.Total > 0 {
		sum.AvgCascadeImpact = impactTotal / float64(sum.Total)
	}

	return Reduction{
		Summary: sum,
		Trends:  series.Buckets(),
		Skipped: skipped,
	}
}
