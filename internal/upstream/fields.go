// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package upstream

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cascade/internal/risk"
)

// Accepted field names in lookup order. The first present name wins.
var (
	flightIDFields    = []string{"flight_id", "flight", "id"}
	riskLevelFields   = []string{"risk_level", "risk"}
	affectedFields    = []string{"affected_flights", "affected"}
	impactFields      = []string{"cascade_impact_minutes", "impact"}
	delayFields       = []string{"delay_minutes", "delay", "dep_delay"}
	scheduledFields   = []string{"scheduled_time", "std", "scheduled"}
	originFields      = []string{"origin", "from"}
	destinationFields = []string{"destination", "to"}
	mitigationFields  = []string{"mitigation_status", "status"}
)

// rawRecord is one upstream record with its fields left undecoded.
type rawRecord map[string]json.RawMessage

func (r rawRecord) lookup(names []string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := r[name]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func (r rawRecord) str(names []string) string {
	v, ok := r.lookup(names)
	if !ok {
		return ""
	}
	return rawString(v)
}

func (r rawRecord) number(names []string) float64 {
	v, ok := r.lookup(names)
	if !ok {
		return 0
	}
	return rawNumber(v)
}

// toRecord maps the raw fields onto a Record. Values that cannot be parsed
// become NaN so the engine counts the record as malformed instead of
// silently treating it as zero.
func (r rawRecord) toRecord() risk.Record {
	rec := risk.Record{
		FlightID:             r.str(flightIDFields),
		Origin:               r.str(originFields),
		Destination:          r.str(destinationFields),
		ScheduledTime:        r.str(scheduledFields),
		DelayMinutes:         r.number(delayFields),
		CascadeImpactMinutes: r.number(impactFields),
		MitigationStatus:     risk.ParseMitigationStatus(r.str(mitigationFields)),
	}

	affected := r.number(affectedFields)
	switch {
	case math.IsNaN(affected):
		rec.AffectedFlights = -1
	default:
		rec.AffectedFlights = int(math.Round(affected))
	}

	if tier, ok := risk.ParseTier(r.str(riskLevelFields)); ok {
		rec.RiskLevel = tier
	}
	return rec
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// rawString renders a scalar as text. Numbers keep their literal form.
func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawNumber accepts 12, 12.5 and "12.5". Anything else is NaN.
func rawNumber(v json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// flexNumber decodes a JSON number or numeric string and remembers whether
// a usable value was present.
type flexNumber struct {
	Value float64
	Set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	f := rawNumber(data)
	if math.IsNaN(f) {
		return nil
	}
	n.Value, n.Set = f, true
	return nil
}

func (n flexNumber) int() int {
	if !n.Set {
		return 0
	}
	return int(math.Round(n.Value))
}

type wireThresholds struct {
	Q60 flexNumber `json:"q60"`
	Q90 flexNumber `json:"q90"`
}

type wireMeta struct {
	TotalAggregated flexNumber      `json:"total_aggregated_flights"`
	Counts          json.RawMessage `json:"counts"`
	Thresholds      json.RawMessage `json:"thresholds"`
	Page            flexNumber      `json:"page"`
	PerPage         flexNumber      `json:"per_page"`
}

// wireResponse keeps meta and each record raw so one bad element cannot
// reject the page.
type wireResponse struct {
	Meta    json.RawMessage `json:"meta"`
	Records json.RawMessage `json:"records"`
}

// decodeMeta converts the wire meta. A meta that is not an object is
// treated as absent. Counts of the wrong shape are empty, unknown tier keys
// are dropped, and thresholds are kept only when both quantiles are present
// and valid.
func decodeMeta(data json.RawMessage) *risk.UpstreamMeta {
	if len(data) == 0 || isNull(data) {
		return nil
	}
	var m wireMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	meta := &risk.UpstreamMeta{
		TotalAggregated: m.TotalAggregated.int(),
		Page:            m.Page.int(),
		PerPage:         m.PerPage.int(),
	}

	var counts map[string]flexNumber
	if len(m.Counts) > 0 && json.Unmarshal(m.Counts, &counts) != nil {
		counts = nil
	}
	for key, n := range counts {
		tier, ok := risk.ParseTier(key)
		if !ok || !n.Set {
			continue
		}
		if meta.Counts == nil {
			meta.Counts = make(map[risk.Tier]int, len(risk.Tiers))
		}
		meta.Counts[tier] += n.int()
	}

	var wt wireThresholds
	if len(m.Thresholds) > 0 && !isNull(m.Thresholds) && json.Unmarshal(m.Thresholds, &wt) == nil &&
		wt.Q60.Set && wt.Q90.Set {
		th := risk.Thresholds{Q60: wt.Q60.Value, Q90: wt.Q90.Value}
		if th.Validate() == nil {
			meta.Thresholds = &th
		}
	}
	return meta
}

// decodeRecords decodes each element on its own. An element that is not an
// object becomes a record with a NaN delay, which the engine counts as
// skipped. A records value that is not an array yields no records.
func decodeRecords(data json.RawMessage) []risk.Record {
	if len(data) == 0 || isNull(data) {
		return []risk.Record{}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return []risk.Record{}
	}
	out := make([]risk.Record, 0, len(elems))
	for _, elem := range elems {
		if isNull(elem) {
			continue
		}
		var raw rawRecord
		if err := json.Unmarshal(elem, &raw); err != nil {
			out = append(out, risk.Record{DelayMinutes: math.NaN(), CascadeImpactMinutes: math.NaN(), AffectedFlights: -1})
			continue
		}
		out = append(out, raw.toRecord())
	}
	return out
}

// decodeResponse decodes a cascade response body. Only a body that is not a
// JSON object is an error.
func decodeResponse(data []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	return &Response{
		Meta:    decodeMeta(wire.Meta),
		Records: decodeRecords(wire.Records),
	}, nil
}
