package domain

import (
	"cmp"
	"slices"
	"time"
)

// JoinVaccinationsWithLookup collapses each region's vaccination series to one
// value according to policy, then inner-joins on region name with the lookup.
// Regions without a lookup entry are dropped. Rows are ordered by region name.
func JoinVaccinationsWithLookup(vacc []VaccinationRecord, lookup []RegionLookup, policy AggregationPolicy) ([]RegionVaccination, error) {
	if _, err := ParseAggregationPolicy(string(policy)); err != nil {
		return nil, err
	}

	abbrev := make(map[string]string, len(lookup))
	for _, l := range lookup {
		if _, ok := abbrev[l.RegionName]; !ok {
			abbrev[l.RegionName] = l.Abbreviation
		}
	}

	totals := collapseVaccinations(vacc, policy)

	out := make([]RegionVaccination, 0, len(totals))
	for name, total := range totals {
		code, ok := abbrev[name]
		if !ok {
			continue
		}
		out = append(out, RegionVaccination{RegionName: name, Abbreviation: code, Vaccinations: total})
	}
	slices.SortFunc(out, func(a, b RegionVaccination) int {
		return cmp.Compare(a.RegionName, b.RegionName)
	})
	return out, nil
}

type latestValue struct {
	date  time.Time
	value int64
}

func collapseVaccinations(vacc []VaccinationRecord, policy AggregationPolicy) map[string]int64 {
	totals := make(map[string]int64)
	if policy == AggregateSum {
		for _, v := range vacc {
			totals[v.RegionName] += v.Vaccinations
		}
		return totals
	}

	latest := make(map[string]latestValue)
	for _, v := range vacc {
		cur, ok := latest[v.RegionName]
		if !ok || !v.Date.Before(cur.date) {
			latest[v.RegionName] = latestValue{date: v.Date, value: v.Vaccinations}
		}
	}
	for name, lv := range latest {
		totals[name] = lv.value
	}
	return totals
}
