// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

// UpstreamMeta is the pre-aggregated metadata an upstream response may carry.
// Counts may describe the entire filtered dataset, not only the returned page.
type UpstreamMeta struct {
	TotalAggregated int          `json:"total_aggregated_flights"`
	Counts          map[Tier]int `json:"counts"`
	Thresholds      *Thresholds  `json:"thresholds,omitempty"`
	Page            int          `json:"page"`
	PerPage         int          `json:"per_page"`
}

// HasCounts reports whether m carries a usable tier-count map.
func (m *UpstreamMeta) HasCounts() bool {
	return m != nil && len(m.Counts) > 0
}

// Source names which side produced a summary's tier counts.
type Source string

const (
	SourceUpstreamCounts Source = "upstream"
	SourceLocalCounts    Source = "local"
)

// Scope names the record set a summary field was computed over.
type Scope string

const (
	ScopeFilteredDataset Scope = "filtered_dataset"
	ScopePage            Scope = "page"
)

// SummaryScope labels each part of a Summary with the record set behind it.
type SummaryScope struct {
	Counts           Scope `json:"counts"`
	TotalAffected    Scope `json:"total_affected"`
	AvgCascadeImpact Scope `json:"avg_cascade_impact"`
}

// Resolution is the outcome of Resolve: either Trusted or Derived.
type Resolution interface {
	Summary() Summary
	Source() Source
	Scope() SummaryScope
	// Local is the page-local reduction, present in both variants.
	Local() Reduction
	resolution()
}

// Trusted takes tier counts from upstream metadata and page-local totals from
// the records in view.
type Trusted struct {
	Meta UpstreamMeta
	Page Reduction
}

// Derived computes everything from the records in view.
type Derived struct {
	Page Reduction
}

func (Trusted) resolution() {}
func (Derived) resolution() {}

// Summary merges upstream counts with page-local totals into a new value.
func (t Trusted) Summary() Summary {
	high := nonNegative(t.Meta.Counts[TierHigh])
	medium := nonNegative(t.Meta.Counts[TierMedium])
	low := nonNegative(t.Meta.Counts[TierLow])

	total := t.Meta.TotalAggregated
	if total <= 0 {
		total = high + medium + low
	}

	return Summary{
		Total:            total,
		High:             high,
		Medium:           medium,
		Low:              low,
		TotalAffected:    t.Page.Summary.TotalAffected,
		AvgCascadeImpact: t.Page.Summary.AvgCascadeImpact,
	}
}

func (Trusted) Source() Source { return SourceUpstreamCounts }

func (Trusted) Scope() SummaryScope {
	return SummaryScope{Counts: ScopeFilteredDataset, TotalAffected: ScopePage, AvgCascadeImpact: ScopePage}
}

func (t Trusted) Local() Reduction { return t.Page }

func (d Derived) Summary() Summary { return d.Page.Summary }

func (Derived) Source() Source { return SourceLocalCounts }

func (Derived) Scope() SummaryScope {
	return SummaryScope{Counts: ScopePage, TotalAffected: ScopePage, AvgCascadeImpact: ScopePage}
}

func (d Derived) Local() Reduction { return d.Page }

// Resolve decides once per request which source supplies the tier counts.
// Upstream counts win whenever meta carries a non-empty count map; otherwise
// records are reduced locally. TotalAffected and AvgCascadeImpact always come
// from records, which are expected to be the page in view.
func Resolve(records []Record, meta *UpstreamMeta, th Thresholds) Resolution {
	local := Reduce(records, th)
	if meta.HasCounts() {
		return Trusted{Meta: cloneMeta(meta), Page: local}
	}
	return Derived{Page: local}
}

// cloneMeta copies meta so the resolution never aliases the caller's map.
func cloneMeta(m *UpstreamMeta) UpstreamMeta {
	out := *m
	out.Counts = make(map[Tier]int, len(m.Counts))
	for k, v := range m.Counts {
		out.Counts[k] = v
	}
	if m.Thresholds != nil {
		th := *m.Thresholds
		out.Thresholds = &th
	}
	return out
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
