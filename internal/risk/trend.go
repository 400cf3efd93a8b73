// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import (
	"sort"
	"strings"
	"time"
)

// TrendBucket holds per-tier counts for one hour of the day.
type TrendBucket struct {
	Hour   int `json:"hour"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total is the sum of the bucket's tier counters.
func (b TrendBucket) Total() int {
	return b.High + b.Medium + b.Low
}

// timeOfDayLayouts are tried in order by ParseTimeOfDay.
var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Bucket returns the hour of day [0,23] for a scheduled time. Values that are
// empty or do not parse fall back to 6 + (index mod 12), where index is the
// record's position in the current record set. The fallback keeps malformed
// records on the chart instead of dropping them.
func Bucket(scheduled string, index int) int {
	if t, ok := ParseTimeOfDay(scheduled); ok {
		return t.Hour()
	}
	return FallbackBucket(index)
}

// ParseTimeOfDay parses a scheduled time in any of the accepted layouts.
func ParseTimeOfDay(scheduled string) (time.Time, bool) {
	s := strings.TrimSpace(scheduled)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FallbackBucket is the deterministic bucket for an unparsable time at index.
func FallbackBucket(index int) int {
	m := index % 12
	if m < 0 {
		m += 12
	}
	return 6 + m
}

// TrendSeries accumulates buckets keyed by hour. The zero value is ready to use.
type TrendSeries struct {
	buckets map[int]*TrendBucket
}

// Increment adds one to tier's counter in hour's bucket, creating the bucket
// on first use. Hours outside [0,23] and unknown tiers are ignored.
func (s *TrendSeries) Increment(hour int, tier Tier) {
	if hour < 0 || hour > 23 || !tier.Valid() {
		return
	}
	if s.buckets == nil {
		s.buckets = make(map[int]*TrendBucket)
	}
	b, ok := s.buckets[hour]
	if !ok {
		b = &TrendBucket{Hour: hour}
		s.buckets[hour] = b
	}
	switch tier {
	case TierHigh:
		b.High++
	case TierMedium:
		b.Medium++
	case TierLow:
		b.Low++
	}
}

// Buckets returns a copy of the populated buckets sorted by hour. Hours with
// no records are absent.
func (s *TrendSeries) Buckets() []TrendBucket {
	out := make([]TrendBucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}
