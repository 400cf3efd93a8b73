// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package risk

import "strconv"

// ViewKey identifies a computed view. Anything cached across requests must be
// keyed by it, so a threshold swap (new SnapshotID) or any filter or paging
// change misses.
type ViewKey struct {
	SnapshotID string
	FilterKey  string
	Page       int
	PerPage    int
}

// NewViewKey builds the key for f at the given page under snapshotID.
func NewViewKey(snapshotID string, f Filter, page, perPage int) ViewKey {
	return ViewKey{SnapshotID: snapshotID, FilterKey: f.Key(), Page: page, PerPage: perPage}
}

func (k ViewKey) String() string {
	return k.SnapshotID + "/" + k.FilterKey + "/" + strconv.Itoa(k.Page) + "/" + strconv.Itoa(k.PerPage)
}
