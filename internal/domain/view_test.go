package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWindow(t *testing.T) {
	cumulative := make([]int64, 100)
	for i := range cumulative {
		cumulative[i] = int64(i * 10)
	}
	derived := ComputeNewCases(append(
		series(t, testCA, "2021-01-01", cumulative...),
		series(t, testNY, "2021-01-01", 1, 2)...,
	))

	tests := []struct {
		name   string
		window Window
		want   int
	}{
		{"last 7", WindowLast7, 7},
		{"last 14", WindowLast14, 14},
		{"last 30", WindowLast30, 30},
		{"all time", WindowAllTime, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := SelectWindow(derived, testCA, tt.window)
			require.NoError(t, err)
			require.Len(t, rows, tt.want)

			last := day(t, "2021-01-01").AddDate(0, 0, 99)
			assert.Equal(t, last, rows[len(rows)-1].Date)
			for i := 1; i < len(rows); i++ {
				assert.True(t, rows[i-1].Date.Before(rows[i].Date), "ascending at %d", i)
				assert.Equal(t, testCA, rows[i].Region)
			}
		})
	}

	t.Run("last 7 returns exactly the trailing records", func(t *testing.T) {
		rows, err := SelectWindow(derived, testCA, WindowLast7)
		require.NoError(t, err)
		for i, r := range rows {
			assert.Equal(t, int64((93+i)*10), r.Cases)
		}
	})

	t.Run("window larger than history", func(t *testing.T) {
		rows, err := SelectWindow(derived, testNY, WindowLast30)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("unknown region", func(t *testing.T) {
		_, err := SelectWindow(derived, "Atlantis", WindowLast7)
		require.ErrorIs(t, err, ErrRegionNotFound)
	})

	t.Run("unknown window", func(t *testing.T) {
		_, err := SelectWindow(derived, testCA, Window("last_90"))
		require.ErrorIs(t, err, ErrInvalidSelection)
	})
}

func TestAggregateByDate(t *testing.T) {
	d1, d2 := day(t, "2021-01-01"), day(t, "2021-01-02")
	derived := ComputeNewCases([]CaseRecord{
		{Region: testCA, Date: d2, Cases: 260, Deaths: 4},
		{Region: testCA, Date: d1, Cases: 100, Deaths: 1},
		{Region: testNY, Date: d1, Cases: 200, Deaths: 2},
		{Region: testNY, Date: d2, Cases: 210, Deaths: 3},
	})

	t.Run("total cases", func(t *testing.T) {
		points, err := AggregateByDate(derived, MetricTotalCases)
		require.NoError(t, err)
		want := []DatePoint{{Date: d1, Total: 300}, {Date: d2, Total: 470}}
		if diff := cmp.Diff(want, points); diff != "" {
			t.Fatalf("points mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("total deaths", func(t *testing.T) {
		points, err := AggregateByDate(derived, MetricTotalDeaths)
		require.NoError(t, err)
		assert.Equal(t, []DatePoint{{Date: d1, Total: 3}, {Date: d2, Total: 7}}, points)
	})

	t.Run("new cases", func(t *testing.T) {
		points, err := AggregateByDate(derived, MetricNewCases)
		require.NoError(t, err)
		assert.Equal(t, []DatePoint{{Date: d1, Total: 0}, {Date: d2, Total: 170}}, points)
	})

	t.Run("vaccinations rejected", func(t *testing.T) {
		_, err := AggregateByDate(derived, MetricTotalVaccinations)
		require.ErrorIs(t, err, ErrInvalidSelection)
	})

	t.Run("empty", func(t *testing.T) {
		points, err := AggregateByDate(nil, MetricTotalCases)
		require.NoError(t, err)
		assert.Empty(t, points)
	})
}

func TestAggregateVaccinationsByDate(t *testing.T) {
	d1, d2 := day(t, "2021-05-01"), day(t, "2021-05-02")
	points := AggregateVaccinationsByDate([]VaccinationRecord{
		{RegionName: testTX, Date: d2, Vaccinations: 30},
		{RegionName: testCA, Date: d1, Vaccinations: 10},
		{RegionName: testTX, Date: d1, Vaccinations: 15},
	})

	assert.Equal(t, []DatePoint{{Date: d1, Total: 25}, {Date: d2, Total: 30}}, points)
}

func TestTopNByMetric(t *testing.T) {
	d0, d1 := day(t, "2021-06-01"), day(t, "2021-06-02")
	records := []CaseRecord{
		{Region: "Alabama", Date: d0, Cases: 100},
		{Region: "Alaska", Date: d0, Cases: 100},
		{Region: testCA, Date: d0, Cases: 100},
		{Region: testNY, Date: d0, Cases: 100},
		{Region: testTX, Date: d0, Cases: 100},
		{Region: "Utah", Date: d0, Cases: 100},
		{Region: "Alabama", Date: d1, Cases: 150},
		{Region: "Alaska", Date: d1, Cases: 110},
		{Region: testCA, Date: d1, Cases: 400},
		{Region: testNY, Date: d1, Cases: 150},
		{Region: testTX, Date: d1, Cases: 120},
		{Region: "Utah", Date: d1, Cases: 105},
	}
	derived := ComputeNewCases(records)

	t.Run("ranks descending with name tie-break", func(t *testing.T) {
		rows, err := TopNByMetric(derived, d1, MetricNewCases, 5)
		require.NoError(t, err)
		want := []RegionValue{
			{Region: testCA, Value: 300},
			{Region: "Alabama", Value: 50},
			{Region: testNY, Value: 50},
			{Region: testTX, Value: 20},
			{Region: "Alaska", Value: 10},
		}
		assert.Equal(t, want, rows)
	})

	t.Run("default n", func(t *testing.T) {
		rows, err := TopNByMetric(derived, d1, MetricTotalCases, 0)
		require.NoError(t, err)
		assert.Len(t, rows, DefaultTopN)
	})

	t.Run("only the target date is considered", func(t *testing.T) {
		rows, err := TopNByMetric(derived, d0, MetricNewCases, 10)
		require.NoError(t, err)
		require.Len(t, rows, 6)
		assert.Equal(t, "Alabama", rows[0].Region)
		assert.Equal(t, "Utah", rows[5].Region)
	})

	t.Run("time of day is ignored", func(t *testing.T) {
		rows, err := TopNByMetric(derived, d1.Add(17*time.Hour), MetricNewCases, 1)
		require.NoError(t, err)
		assert.Equal(t, []RegionValue{{Region: testCA, Value: 300}}, rows)
	})

	t.Run("no data for date", func(t *testing.T) {
		_, err := TopNByMetric(derived, day(t, "2021-06-03"), MetricNewCases, 5)
		require.ErrorIs(t, err, ErrNoDataForDate)
		assert.Contains(t, err.Error(), "2021-06-03")
	})
}

func TestRegionsAndLatestDate(t *testing.T) {
	records := append(series(t, testTX, "2021-01-01", 1, 2), series(t, testCA, "2021-01-05", 3)...)

	assert.Equal(t, []string{testCA, testTX}, Regions(records))

	latest, ok := LatestDate(records)
	require.True(t, ok)
	assert.Equal(t, day(t, "2021-01-05"), latest)

	_, ok = LatestDate(nil)
	assert.False(t, ok)
}

func TestParseSelections(t *testing.T) {
	m, err := ParseMetric("total_deaths")
	require.NoError(t, err)
	assert.Equal(t, MetricTotalDeaths, m)

	w, err := ParseWindow("last_14")
	require.NoError(t, err)
	assert.Equal(t, 14, w.Size())
	assert.Equal(t, 0, WindowAllTime.Size())

	v, err := ParseView("vaccination_map")
	require.NoError(t, err)
	assert.Equal(t, MetricTotalVaccinations, v.Metric())
	assert.Equal(t, MetricNewCases, ViewNewCasesByRegion.Metric())

	for _, bad := range []func() error{
		func() error { _, err := ParseMetric("recoveries"); return err },
		func() error { _, err := ParseWindow("last_90"); return err },
		func() error { _, err := ParseView("hospital_map"); return err },
		func() error { _, err := ParseAggregationPolicy("max"); return err },
	} {
		assert.ErrorIs(t, bad(), ErrInvalidSelection)
	}
}
