// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidThresholds is returned when q60 > q90 or either bound is negative or NaN.
	ErrInvalidThresholds = errors.New("invalid quantile thresholds")

	// ErrOutOfRange is matched by *OutOfRangeError.
	ErrOutOfRange = errors.New("page number out of range")

	// ErrInvalidPageSize is returned for a page size <= 0.
	ErrInvalidPageSize = errors.New("page size must be positive")

	// ErrMalformedRecord marks a record that cannot take part in aggregation.
	ErrMalformedRecord = errors.New("malformed flight record")

	// ErrEmptyReference is returned when thresholds are computed from no usable delays.
	ErrEmptyReference = errors.New("reference dataset has no usable delays")
)

// OutOfRangeError reports a page index outside [1, TotalPages].
type OutOfRangeError struct {
	Page       int
	TotalPages int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range [1, %d]", e.Page, e.TotalPages)
}

// Is makes errors.Is(err, ErrOutOfRange) match.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}
