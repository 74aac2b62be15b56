package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by every source feed.
const DateLayout = "2006-01-02"

// CaseRecord is one region's cumulative case and death counts as of a date.
// Region and Date together form a unique key.
type CaseRecord struct {
	Region string
	Date   time.Time
	Cases  int64
	Deaths int64
}

// VaccinationRecord is one region's cumulative vaccinations as of a date.
type VaccinationRecord struct {
	RegionName   string
	Date         time.Time
	Vaccinations int64
}

// RegionLookup maps a region name to its postal abbreviation.
type RegionLookup struct {
	RegionName   string
	Abbreviation string
}

// DerivedRecord extends a CaseRecord with day-over-day and rolling metrics.
// The rolling fields are nil until the region has seven observations.
type DerivedRecord struct {
	CaseRecord
	NewCases            int64
	RollingWeekCases    *int64
	RollingWeekNewCases *int64
}

// RegionValue is a single (region, value) row for tables and rankings.
type RegionValue struct {
	Region string `json:"region"`
	Value  int64  `json:"value"`
}

// DatePoint is a single (date, total) point on a time series chart.
type DatePoint struct {
	Date  time.Time
	Total int64
}

// RegionVaccination is one row of the vaccination choropleth.
type RegionVaccination struct {
	RegionName   string
	Abbreviation string
	Vaccinations int64
}

// Dataset groups the three source tables loaded in one refresh.
type Dataset struct {
	Cases        []CaseRecord
	Vaccinations []VaccinationRecord
	Lookup       []RegionLookup
}

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
