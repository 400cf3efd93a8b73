// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Filter selects records before pagination and aggregation.
type Filter struct {
	// RiskLevels keeps records whose tier is listed. Empty means all tiers.
	RiskLevels []Tier `json:"risk_levels,omitempty"`

	// FlightSubstring is a case-insensitive substring of FlightID. Empty means all.
	FlightSubstring string `json:"flight,omitempty"`
}

// IsZero reports whether f selects every record.
func (f Filter) IsZero() bool {
	return len(f.RiskLevels) == 0 && strings.TrimSpace(f.FlightSubstring) == ""
}

// Matches reports whether r passes f. Tier filtering looks at r.RiskLevel, so
// records must be classified first.
func (f Filter) Matches(r *Record) bool {
	if len(f.RiskLevels) > 0 {
		found := false
		for _, t := range f.RiskLevels {
			if r.RiskLevel == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if sub := strings.TrimSpace(f.FlightSubstring); sub != "" {
		if !strings.Contains(strings.ToLower(r.FlightID), strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

// canonical renders f independently of tier order, duplicates and case.
func (f Filter) canonical() string {
	seen := make(map[Tier]bool, len(f.RiskLevels))
	tiers := make([]string, 0, len(f.RiskLevels))
	for _, t := range f.RiskLevels {
		if !seen[t] {
			seen[t] = true
			tiers = append(tiers, string(t))
		}
	}
	sort.Strings(tiers)
	return "risk=" + strings.Join(tiers, ",") + ";flight=" + strings.ToLower(strings.TrimSpace(f.FlightSubstring))
}

// Key is a short fingerprint of f. Equal filters produce equal keys. Callers
// compare the key a client last saw with the current one to decide when the
// page number must return to 1.
func (f Filter) Key() string {
	h := fnv.New64a()
	h.Write([]byte(f.canonical()))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Apply returns the records matching f in their original order.
func Apply(records []Record, f Filter) []Record {
	if f.IsZero() {
		out := make([]Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]Record, 0, len(records))
	for i := range records {
		if f.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Page is one slice of a filtered record set.
type Page struct {
	Records       []Record `json:"records"`
	PageNumber    int      `json:"page"`
	PageSize      int      `json:"per_page"`
	TotalMatching int      `json:"total_matching"`
	TotalPages    int      `json:"total_pages"`
}

// TotalPages is max(1, ceil(totalMatching / pageSize)).
func TotalPages(totalMatching, pageSize int) int {
	if pageSize <= 0 || totalMatching <= 0 {
		return 1
	}
	return (totalMatching + pageSize - 1) / pageSize
}

// Paginate filters records and returns the requested page, preserving order.
// A page number outside [1, TotalPages] is an *OutOfRangeError rather than an
// empty page, so "no results" and "bad page index" stay distinguishable.
// Page 1 of an empty set is a valid empty page.
//
// Paginate does not reset the page number when the filter changes; callers
// must request page 1 after any filter change.
func Paginate(records []Record, f Filter, pageNumber, pageSize int) (Page, error) {
	if pageSize <= 0 {
		return Page{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}

	matching := Apply(records, f)
	total := len(matching)
	totalPages := TotalPages(total, pageSize)
	if pageNumber < 1 || pageNumber > totalPages {
		return Page{}, &OutOfRangeError{Page: pageNumber, TotalPages: totalPages}
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Records:       matching[start:end:end],
		PageNumber:    pageNumber,
		PageSize:      pageSize,
		TotalMatching: total,
		TotalPages:    totalPages,
	}, nil
}

// PageOf wraps records that an upstream already paginated. totalMatching is
// the upstream's filtered total when known, or 0; it is raised to the number
// of records provably present up to this page. Records beyond pageSize are
// dropped.
func PageOf(records []Record, pageNumber, pageSize, totalMatching int) (Page, error) {
	if pageSize <= 0 {
		return Page{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}
	if pageNumber < 1 {
		return Page{}, &OutOfRangeError{Page: pageNumber, TotalPages: TotalPages(totalMatching, pageSize)}
	}

	if len(records) > pageSize {
		records = records[:pageSize]
	}
	if len(records) > 0 {
		if seen := (pageNumber-1)*pageSize + len(records); seen > totalMatching {
			totalMatching = seen
		}
	}

	totalPages := TotalPages(totalMatching, pageSize)
	if pageNumber > totalPages {
		return Page{}, &OutOfRangeError{Page: pageNumber, TotalPages: totalPages}
	}

	out := make([]Record, len(records))
	copy(out, records)
	return Page{
		Records:       out,
		PageNumber:    pageNumber,
		PageSize:      pageSize,
		TotalMatching: totalMatching,
		TotalPages:    totalPages,
	}, nil
}
