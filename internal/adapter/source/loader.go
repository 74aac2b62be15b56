package source

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Dataset labels used in logs and metrics.
const (
	datasetCases        = "cases"
	datasetVaccinations = "vaccinations"
	datasetLookup       = "lookup"
)

// CaseColumns names the columns read from the case/death feed.
type CaseColumns struct {
	Date   string
	Region string
	Cases  string
	Deaths string
}

// VaccinationColumns names the columns read from the vaccination feed.
type VaccinationColumns struct {
	Date         string
	Region       string
	Vaccinations string
}

// LookupColumns names the columns read from the region lookup feed.
type LookupColumns struct {
	Region       string
	Abbreviation string
}

// Feeds locates the three source feeds and the columns each must carry.
type Feeds struct {
	CasesURL           string
	VaccinationsURL    string
	LookupURL          string
	CaseColumns        CaseColumns
	VaccinationColumns VaccinationColumns
	LookupColumns      LookupColumns
}

// DefaultFeeds returns the column layout of the public feeds documented in
// package domain, with the given URLs.
func DefaultFeeds(casesURL, vaccinationsURL, lookupURL string) Feeds {
	return Feeds{
		CasesURL:           casesURL,
		VaccinationsURL:    vaccinationsURL,
		LookupURL:          lookupURL,
		CaseColumns:        CaseColumns{Date: "date", Region: "state", Cases: "cases", Deaths: "deaths"},
		VaccinationColumns: VaccinationColumns{Date: "date", Region: "location", Vaccinations: "total_vaccinations"},
		LookupColumns:      LookupColumns{Region: "state", Abbreviation: "abbreviation"},
	}
}

// Loader fetches and validates the source feeds.
type Loader struct {
	fetcher Fetcher
	feeds   Feeds
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader reading feeds through fetcher. A nil clock uses
// real time.
func NewLoader(fetcher Fetcher, feeds Feeds, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{
		fetcher: fetcher,
		feeds:   feeds,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// LoadAll loads the three feeds concurrently. Any single failure fails the load.
func (l *Loader) LoadAll(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cases, err := l.LoadCases(gctx)
		ds.Cases = cases
		return err
	})
	g.Go(func() error {
		vacc, err := l.LoadVaccinations(gctx)
		ds.Vaccinations = vacc
		return err
	})
	g.Go(func() error {
		lookup, err := l.LoadRegionLookup(gctx)
		ds.Lookup = lookup
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Dataset{}, err
	}
	return ds, nil
}

// LoadCases returns the case/death series sorted by date, then region.
func (l *Loader) LoadCases(ctx context.Context) ([]domain.CaseRecord, error) {
	cols := l.feeds.CaseColumns
	t, err := l.fetchTable(ctx, datasetCases, l.feeds.CasesURL, cols.Date, cols.Region, cols.Cases, cols.Deaths)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CaseRecord, 0, len(t.rows))
	seen := make(map[string]struct{}, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		date, err := domain.ParseDate(t.value(row, cols.Date))
		if err != nil {
			return nil, l.fail(datasetCases, rowError(datasetCases, line, err))
		}
		region := t.value(row, cols.Region)
		if region == "" {
			return nil, l.fail(datasetCases, rowError(datasetCases, line, fmt.Errorf("empty region")))
		}
		cases, err := parseCount(t.value(row, cols.Cases))
		if err != nil {
			return nil, l.fail(datasetCases, rowError(datasetCases, line, err))
		}
		deaths, err := parseCountOrZero(t.value(row, cols.Deaths))
		if err != nil {
			return nil, l.fail(datasetCases, rowError(datasetCases, line, err))
		}

		key := region + "|" + date.Format(domain.DateLayout)
		if _, dup := seen[key]; dup {
			return nil, l.fail(datasetCases, rowError(datasetCases, line, fmt.Errorf("duplicate record for %s", key)))
		}
		seen[key] = struct{}{}

		out = append(out, domain.CaseRecord{Region: region, Date: date, Cases: cases, Deaths: deaths})
	}

	slices.SortStableFunc(out, func(a, b domain.CaseRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Region, b.Region)
	})

	l.succeed(datasetCases, len(out))
	return out, nil
}

// LoadVaccinations returns the vaccination series. Rows with an empty count are
// skipped; the public feed leaves gaps on days a state did not report.
func (l *Loader) LoadVaccinations(ctx context.Context) ([]domain.VaccinationRecord, error) {
	cols := l.feeds.VaccinationColumns
	t, err := l.fetchTable(ctx, datasetVaccinations, l.feeds.VaccinationsURL, cols.Date, cols.Region, cols.Vaccinations)
	if err != nil {
		return nil, err
	}

	out := make([]domain.VaccinationRecord, 0, len(t.rows))
	skipped := 0
	for i, row := range t.rows {
		line := i + 2
		raw := t.value(row, cols.Vaccinations)
		if raw == "" {
			skipped++
			continue
		}
		date, err := domain.ParseDate(t.value(row, cols.Date))
		if err != nil {
			return nil, l.fail(datasetVaccinations, rowError(datasetVaccinations, line, err))
		}
		n, err := parseCount(raw)
		if err != nil {
			return nil, l.fail(datasetVaccinations, rowError(datasetVaccinations, line, err))
		}
		out = append(out, domain.VaccinationRecord{
			RegionName:   t.value(row, cols.Region),
			Date:         date,
			Vaccinations: n,
		})
	}

	if skipped > 0 {
		l.logger.Debug("skipped vaccination rows without a count", "skipped", skipped)
	}
	l.succeed(datasetVaccinations, len(out))
	return out, nil
}

// LoadRegionLookup returns the region name to abbreviation table.
func (l *Loader) LoadRegionLookup(ctx context.Context) ([]domain.RegionLookup, error) {
	cols := l.feeds.LookupColumns
	t, err := l.fetchTable(ctx, datasetLookup, l.feeds.LookupURL, cols.Region, cols.Abbreviation)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RegionLookup, 0, len(t.rows))
	seen := make(map[string]struct{}, len(t.rows))
	for i, row := range t.rows {
		name := t.value(row, cols.Region)
		if name == "" {
			return nil, l.fail(datasetLookup, rowError(datasetLookup, i+2, fmt.Errorf("empty region name")))
		}
		if _, dup := seen[name]; dup {
			return nil, l.fail(datasetLookup, rowError(datasetLookup, i+2, fmt.Errorf("duplicate region %q", name)))
		}
		seen[name] = struct{}{}
		out = append(out, domain.RegionLookup{RegionName: name, Abbreviation: t.value(row, cols.Abbreviation)})
	}

	l.succeed(datasetLookup, len(out))
	return out, nil
}

func (l *Loader) fetchTable(ctx context.Context, dataset, url string, required ...string) (*table, error) {
	start := l.clock.Now()
	body, err := l.fetcher.Fetch(ctx, url)
	l.metrics.SourceFetchDuration.WithLabelValues(dataset).Observe(l.clock.Since(start).Seconds())
	if err != nil {
		return nil, l.fail(dataset, fmt.Errorf("%w: fetch %s: %w", domain.ErrSourceUnavailable, dataset, err))
	}

	t, err := readTable(body, required...)
	if err != nil {
		return nil, l.fail(dataset, fmt.Errorf("%s: %w", dataset, err))
	}
	return t, nil
}

func (l *Loader) fail(dataset string, err error) error {
	l.metrics.SourceFetches.WithLabelValues(dataset, "error").Inc()
	l.logger.Warn("source load failed", "dataset", dataset, "error", err)
	return err
}

func (l *Loader) succeed(dataset string, rows int) {
	l.metrics.SourceFetches.WithLabelValues(dataset, "success").Inc()
	l.logger.Debug("source loaded", "dataset", dataset, "rows", rows)
}

// parseCountOrZero treats an empty cell as zero; the NYT feed omits deaths for
// a handful of early territory rows.
func parseCountOrZero(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return parseCount(s)
}
