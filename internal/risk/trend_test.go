// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import "testing"

func TestBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		scheduled string
		index     int
		want      int
	}{
		{"hh:mm", "07:15", 0, 7},
		{"single digit hour", "7:15", 0, 7},
		{"with seconds", "23:59:59", 0, 23},
		{"midnight", "00:05", 4, 0},
		{"rfc3339", "2026-03-01T18:45:00Z", 0, 18},
		{"padded", "  14:30 ", 0, 14},
		{"unparsable at index 3", "soon", 3, 9},
		{"empty at index 0", "", 0, 6},
		{"hour out of range", "25:00", 11, 17},
		{"fallback wraps", "", 14, 8},
		{"negative index", "", -1, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Bucket(tt.scheduled, tt.index); got != tt.want {
				t.Errorf("Bucket(%q, %d) = %d, want %d", tt.scheduled, tt.index, got, tt.want)
			}
		})
	}
}

func TestTrendSeries(t *testing.T) {
	t.Parallel()

	var s TrendSeries
	if got := s.Buckets(); len(got) != 0 {
		t.Fatalf("zero series has %d buckets, want 0", len(got))
	}

	s.Increment(18, TierHigh)
	s.Increment(7, TierLow)
	s.Increment(7, TierLow)
	s.Increment(7, TierMedium)
	s.Increment(24, TierHigh)
	s.Increment(9, TierUnset)

	got := s.Buckets()
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %+v", len(got), got)
	}
	if got[0] != (TrendBucket{Hour: 7, Medium: 1, Low: 2}) {
		t.Errorf("bucket 7 = %+v", got[0])
	}
	if got[1] != (TrendBucket{Hour: 18, High: 1}) {
		t.Errorf("bucket 18 = %+v", got[1])
	}

	got[0].Low = 100
	if s.Buckets()[0].Low != 2 {
		t.Error("Buckets must return copies")
	}
}
