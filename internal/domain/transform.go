package domain

import "slices"

// rollingWindow is the trailing window, in observations, for the weekly columns.
const rollingWindow = 7

// ComputeNewCases derives day-over-day new cases and 7-point rolling sums for
// every record. The output has the same length and order as the input; only the
// computation is grouped by region. Within a region records are visited in
// ascending date order, the first record's NewCases is 0, and decreases in the
// cumulative series yield negative values.
func ComputeNewCases(records []CaseRecord) []DerivedRecord {
	out := make([]DerivedRecord, len(records))
	byRegion := make(map[string][]int)
	for i, r := range records {
		out[i].CaseRecord = r
		byRegion[r.Region] = append(byRegion[r.Region], i)
	}

	for _, idx := range byRegion {
		slices.SortStableFunc(idx, func(a, b int) int {
			return records[a].Date.Compare(records[b].Date)
		})
		deriveRegion(out, idx)
	}
	return out
}

// deriveRegion fills the derived columns for one region. idx lists the region's
// positions in out, in ascending date order.
func deriveRegion(out []DerivedRecord, idx []int) {
	var prevCases, weekCases, weekNew int64
	for k, i := range idx {
		rec := &out[i]
		if k > 0 {
			rec.NewCases = rec.Cases - prevCases
		}
		prevCases = rec.Cases

		weekCases += rec.Cases
		weekNew += rec.NewCases
		if k >= rollingWindow {
			dropped := out[idx[k-rollingWindow]]
			weekCases -= dropped.Cases
			weekNew -= dropped.NewCases
		}
		if k >= rollingWindow-1 {
			cases, newCases := weekCases, weekNew
			rec.RollingWeekCases = &cases
			rec.RollingWeekNewCases = &newCases
		}
	}
}
