package domain

import "fmt"

// Metric names a numeric column a view can chart or rank.
type Metric string

const (
	MetricNewCases          Metric = "new_cases"
	MetricTotalCases        Metric = "total_cases"
	MetricTotalDeaths       Metric = "total_deaths"
	MetricTotalVaccinations Metric = "total_vaccinations"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricNewCases, MetricTotalCases, MetricTotalDeaths, MetricTotalVaccinations:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidSelection, s)
	}
}

// Window bounds how much trailing history a view shows.
type Window string

const (
	WindowLast7   Window = "last_7"
	WindowLast14  Window = "last_14"
	WindowLast30  Window = "last_30"
	WindowAllTime Window = "all_time"
)

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case WindowLast7, WindowLast14, WindowLast30, WindowAllTime:
		return w, nil
	default:
		return "", fmt.Errorf("%w: unknown window %q", ErrInvalidSelection, s)
	}
}

// Size returns the number of trailing records the window keeps, or 0 for all time.
func (w Window) Size() int {
	switch w {
	case WindowLast7:
		return 7
	case WindowLast14:
		return 14
	case WindowLast30:
		return 30
	default:
		return 0
	}
}

// View names a dashboard tab.
type View string

const (
	ViewNewCasesByRegion View = "new_cases_by_region"
	ViewTotalCases       View = "total_cases"
	ViewTotalDeaths      View = "total_deaths"
	ViewVaccinationMap   View = "vaccination_map"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewNewCasesByRegion, ViewTotalCases, ViewTotalDeaths, ViewVaccinationMap:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", ErrInvalidSelection, s)
	}
}

// Metric returns the column a tab charts.
func (v View) Metric() Metric {
	switch v {
	case ViewTotalCases:
		return MetricTotalCases
	case ViewTotalDeaths:
		return MetricTotalDeaths
	case ViewVaccinationMap:
		return MetricTotalVaccinations
	default:
		return MetricNewCases
	}
}

// AggregationPolicy selects how a region's vaccination series collapses to one value.
type AggregationPolicy string

const (
	AggregateSum    AggregationPolicy = "sum"
	AggregateLatest AggregationPolicy = "latest"
)

// ParseAggregationPolicy validates a policy name.
func ParseAggregationPolicy(s string) (AggregationPolicy, error) {
	switch p := AggregationPolicy(s); p {
	case AggregateSum, AggregateLatest:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown vaccination aggregation %q", ErrInvalidSelection, s)
	}
}
