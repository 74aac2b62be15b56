package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// SnapshotSource exposes the current snapshot and the latest refresh error.
type SnapshotSource interface {
	Snapshot() *Snapshot
	LastError() error
}

// Result is the payload of one dashboard view. Stale is set when the data
// comes from an earlier computation or an earlier refresh; Error then carries
// the failure that made it stale.
type Result[T any] struct {
	Data  T
	AsOf  time.Time
	Stale bool
	Error string
}

// TopTable is the "most new cases yesterday" table.
type TopTable struct {
	Date time.Time
	Rows []domain.RegionValue
}

// Views computes dashboard views from the current snapshot. Each request reads
// the snapshot pointer once, so a view never mixes two refreshes.
type Views struct {
	source  SnapshotSource
	clock   clockwork.Clock
	policy  domain.AggregationPolicy
	topN    int
	logger  *slog.Logger
	metrics *observability.Metrics

	group    singleflight.Group
	mu       sync.Mutex
	lastGood map[string]any
}

// NewViews creates the view layer. A nil clock uses real time.
func NewViews(source SnapshotSource, policy domain.AggregationPolicy, topN int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Views {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Views{
		source:   source,
		clock:    clock,
		policy:   policy,
		topN:     topN,
		logger:   logger,
		metrics:  metrics,
		lastGood: make(map[string]any),
	}
}

// Regions lists the selectable regions.
func (v *Views) Regions() (Result[[]string], error) {
	return compute(v, "regions", "regions", func(s *Snapshot) ([]string, error) {
		return s.Regions, nil
	})
}

// NewCasesByRegion returns one region's derived series trimmed to window.
func (v *Views) NewCasesByRegion(region string, window domain.Window) (Result[[]domain.DerivedRecord], error) {
	key := "new_cases:" + region + ":" + string(window)
	return compute(v, string(domain.ViewNewCasesByRegion), key, func(s *Snapshot) ([]domain.DerivedRecord, error) {
		return domain.SelectWindow(s.Derived, region, window)
	})
}

// Totals returns the national series for metric, summed per date.
func (v *Views) Totals(metric domain.Metric) (Result[[]domain.DatePoint], error) {
	if _, err := domain.ParseMetric(string(metric)); err != nil {
		return Result[[]domain.DatePoint]{}, err
	}
	return compute(v, "totals", "totals:"+string(metric), func(s *Snapshot) ([]domain.DatePoint, error) {
		if metric == domain.MetricTotalVaccinations {
			return domain.AggregateVaccinationsByDate(s.Vaccinations), nil
		}
		return domain.AggregateByDate(s.Derived, metric)
	})
}

// TopRegions ranks regions by new cases on the day before the service clock's
// current day. n <= 0 uses the configured table size.
func (v *Views) TopRegions(n int) (Result[TopTable], error) {
	if n <= 0 {
		n = v.topN
	}
	target := domain.Day(v.clock.Now()).AddDate(0, 0, -1)
	return compute(v, "top_regions", "top:"+strconv.Itoa(n), func(s *Snapshot) (TopTable, error) {
		rows, err := domain.TopNByMetric(s.Derived, target, domain.MetricNewCases, n)
		if err != nil {
			return TopTable{}, err
		}
		return TopTable{Date: target, Rows: rows}, nil
	})
}

// VaccinationMap returns the choropleth rows.
func (v *Views) VaccinationMap() (Result[[]domain.RegionVaccination], error) {
	return compute(v, string(domain.ViewVaccinationMap), "vaccination_map", func(s *Snapshot) ([]domain.RegionVaccination, error) {
		return domain.JoinVaccinationsWithLookup(s.Vaccinations, s.Lookup, v.policy)
	})
}

type computed[T any] struct {
	data T
	asOf time.Time
}

// compute runs fn against the current snapshot, at most once concurrently per
// key and snapshot. When fn fails and an earlier result for key exists, that
// result is returned marked stale instead of the error.
func compute[T any](v *Views, view, key string, fn func(*Snapshot) (T, error)) (Result[T], error) {
	snap := v.source.Snapshot()
	if snap == nil {
		v.metrics.ViewRequests.WithLabelValues(view, "error").Inc()
		return Result[T]{}, ErrNoSnapshot
	}

	out, err, _ := v.group.Do(key+":"+snap.ID, func() (any, error) {
		data, err := fn(snap)
		if err != nil {
			return nil, err
		}
		c := computed[T]{data: data, asOf: snap.LoadedAt}
		v.mu.Lock()
		v.lastGood[key] = c
		v.mu.Unlock()
		return c, nil
	})

	if err != nil {
		v.mu.Lock()
		prev, ok := v.lastGood[key].(computed[T])
		v.mu.Unlock()
		if !ok {
			v.metrics.ViewRequests.WithLabelValues(view, "error").Inc()
			return Result[T]{}, fmt.Errorf("%s: %w", view, err)
		}
		v.logger.Warn("view computation failed, serving last good result",
			"view", view, "key", key, "as_of", prev.asOf, "error", err)
		v.metrics.ViewRequests.WithLabelValues(view, "stale").Inc()
		return Result[T]{Data: prev.data, AsOf: prev.asOf, Stale: true, Error: err.Error()}, nil
	}

	c := out.(computed[T])
	res := Result[T]{Data: c.data, AsOf: c.asOf}
	if refreshErr := v.source.LastError(); refreshErr != nil {
		res.Stale = true
		res.Error = refreshErr.Error()
		v.metrics.ViewRequests.WithLabelValues(view, "stale").Inc()
	} else {
		v.metrics.ViewRequests.WithLabelValues(view, "fresh").Inc()
	}
	return res, nil
}
