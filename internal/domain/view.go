package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// DefaultTopN is the table size used when a ranking asks for n <= 0.
const DefaultTopN = 5

// SelectWindow returns the given region's records in ascending date order,
// trimmed to the trailing window. WindowAllTime returns the full history.
func SelectWindow(derived []DerivedRecord, region string, window Window) ([]DerivedRecord, error) {
	if _, err := ParseWindow(string(window)); err != nil {
		return nil, err
	}

	var rows []DerivedRecord
	for _, d := range derived {
		if d.Region == region {
			rows = append(rows, d)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrRegionNotFound, region)
	}

	slices.SortStableFunc(rows, func(a, b DerivedRecord) int {
		return a.Date.Compare(b.Date)
	})

	if n := window.Size(); n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// AggregateByDate sums a case-derived metric across all regions sharing each
// date, ordered ascending by date. Vaccinations live in a separate table; see
// AggregateVaccinationsByDate.
func AggregateByDate(derived []DerivedRecord, metric Metric) ([]DatePoint, error) {
	if metric == MetricTotalVaccinations {
		return nil, fmt.Errorf("%w: %s is not a case metric", ErrInvalidSelection, metric)
	}
	totals := make(map[time.Time]int64)
	for _, d := range derived {
		v, err := caseMetric(d, metric)
		if err != nil {
			return nil, err
		}
		totals[Day(d.Date)] += v
	}
	return sortedPoints(totals), nil
}

// AggregateVaccinationsByDate sums cumulative vaccinations across all regions
// sharing each date, ordered ascending by date.
func AggregateVaccinationsByDate(vacc []VaccinationRecord) []DatePoint {
	totals := make(map[time.Time]int64)
	for _, v := range vacc {
		totals[Day(v.Date)] += v.Vaccinations
	}
	return sortedPoints(totals)
}

// TopNByMetric ranks regions by metric on exactly one date: descending by value,
// ties broken by region name ascending. n <= 0 uses DefaultTopN. The caller
// supplies targetDate; only its calendar day is compared.
func TopNByMetric(derived []DerivedRecord, targetDate time.Time, metric Metric, n int) ([]RegionValue, error) {
	if metric == MetricTotalVaccinations {
		return nil, fmt.Errorf("%w: %s is not a case metric", ErrInvalidSelection, metric)
	}
	if n <= 0 {
		n = DefaultTopN
	}

	day := Day(targetDate)
	var rows []RegionValue
	for _, d := range derived {
		if !Day(d.Date).Equal(day) {
			continue
		}
		v, err := caseMetric(d, metric)
		if err != nil {
			return nil, err
		}
		rows = append(rows, RegionValue{Region: d.Region, Value: v})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDataForDate, day.Format(DateLayout))
	}

	slices.SortFunc(rows, func(a, b RegionValue) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Region, b.Region)
	})

	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

// Regions returns the sorted set of distinct region names.
func Regions(records []CaseRecord) []string {
	seen := make(map[string]struct{}, 64)
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Region]; ok {
			continue
		}
		seen[r.Region] = struct{}{}
		out = append(out, r.Region)
	}
	slices.Sort(out)
	return out
}

// LatestDate returns the most recent date in records, or false when empty.
func LatestDate(records []CaseRecord) (time.Time, bool) {
	var latest time.Time
	for _, r := range records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, !latest.IsZero()
}

func caseMetric(d DerivedRecord, metric Metric) (int64, error) {
	switch metric {
	case MetricNewCases:
		return d.NewCases, nil
	case MetricTotalCases:
		return d.Cases, nil
	case MetricTotalDeaths:
		return d.Deaths, nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", ErrInvalidSelection, metric)
	}
}

func sortedPoints(totals map[time.Time]int64) []DatePoint {
	points := make([]DatePoint, 0, len(totals))
	for date, total := range totals {
		points = append(points, DatePoint{Date: date, Total: total})
	}
	slices.SortFunc(points, func(a, b DatePoint) int {
		return a.Date.Compare(b.Date)
	})
	return points
}
