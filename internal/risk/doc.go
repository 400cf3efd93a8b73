// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package risk is the aggregation and classification engine behind the cascade
risk dashboard.

Every function in this package is pure: results depend only on the arguments,
nothing is cached, and inputs are never mutated. The one piece of shared state
is ThresholdStore, which publishes quantile thresholds through an atomic
pointer so classification never observes a half-written pair.

# Components

  - Classify maps a delay to a Tier given Thresholds (q60, q90).
  - Bucket and TrendSeries group records by scheduled hour of day.
  - Reduce derives a Summary, trend buckets and a skipped count from records.
  - Resolve picks between upstream-supplied counts (Trusted) and locally
    derived ones (Derived).
  - Apply and Paginate produce the filtered, ordered Page shown to the user.

# Summary scope

When upstream counts are trusted, Total/High/Medium/Low describe the whole
filtered dataset while TotalAffected and AvgCascadeImpact describe only the
records on the current page. Callers surface this through SummaryScope so the
two scopes are labelled rather than silently mixed.

# Example

	th := risk.Thresholds{Q60: 15, Q90: 30}
	filtered := risk.Apply(risk.ClassifyRecords(records, th), filter)
	page, err := risk.Paginate(filtered, risk.Filter{}, 1, 50)
	if err != nil {
	    return err
	}
	res := risk.Resolve(page.Records, meta, th)
	summary := res.Summary()
*/
package risk
