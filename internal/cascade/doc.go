// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package cascade assembles dashboard views from the analytics service and the
risk engine.

A view request runs through these steps:

 1. Look the view up in the LRU cache, keyed by the active threshold
    snapshot id, the filter fingerprint and the page.
 2. Fetch the matching page from the analytics service.
 3. Adopt thresholds the service supplied, when they are valid.
 4. Classify, filter and paginate the records.
 5. Resolve the summary: upstream counts when present, local reduction
    otherwise.
 6. Store the view as last-known-good and cache it.

When the analytics service cannot answer, the view is served from the
last-known-good snapshot, then from the DuckDB reference mirror, and finally
as an empty view. Each fallback is flagged degraded and never fails the
request.

The Refresher keeps the reference mirror and the dataset thresholds current.
*/
package cascade
