package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// ErrNoSnapshot is returned by views and readiness checks before the first
// successful refresh.
var ErrNoSnapshot = errors.New("no snapshot loaded yet")

const initialBackoff = 200 * time.Millisecond

// DatasetLoader fetches the three source tables.
type DatasetLoader interface {
	LoadAll(ctx context.Context) (domain.Dataset, error)
}

// Invalidator drops cached source bodies so the next load refetches them.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Publisher announces a freshly loaded snapshot.
type Publisher interface {
	Publish(ctx context.Context, summary domain.SnapshotSummary) error
}

// Deps are the collaborators of a Pipeline. Invalidator, Publisher and Clock
// are optional.
type Deps struct {
	Loader      DatasetLoader
	Invalidator Invalidator
	Publisher   Publisher
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Snapshot is an immutable view of one successful load plus its derived table.
type Snapshot struct {
	ID         string
	domain.Dataset
	Derived    []domain.DerivedRecord
	Regions    []string
	LatestDate time.Time
	LoadedAt   time.Time
}

// Status reports the held snapshot and the outcome of the latest refresh.
type Status struct {
	Ready       bool
	SnapshotID  string
	LoadedAt    time.Time
	LatestDate  time.Time
	CaseRows    int
	VaccRows    int
	LookupRows  int
	LastAttempt time.Time
	LastError   error
}

// Pipeline holds the current snapshot and refreshes it on a schedule.
type Pipeline struct {
	loader      DatasetLoader
	invalidator Invalidator
	publisher   Publisher
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	interval    time.Duration

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
	running sync.Mutex // serializes forced and unforced refreshes

	mu          sync.Mutex
	lastAttempt time.Time
	lastErr     error
}

// New creates a Pipeline that refreshes every interval once Run is called.
func New(d Deps, interval time.Duration) *Pipeline {
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		loader:      d.Loader,
		invalidator: d.Invalidator,
		publisher:   d.Publisher,
		clock:       clock,
		logger:      d.Logger,
		metrics:     d.Metrics,
		interval:    interval,
	}
}

// Snapshot returns the current snapshot, or nil before the first successful refresh.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.current.Load()
}

// LastError returns the error of the most recent refresh, or nil if it succeeded.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Status summarizes the held snapshot and the latest refresh attempt.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := Status{LastAttempt: p.lastAttempt, LastError: p.lastErr}
	p.mu.Unlock()

	if snap := p.Snapshot(); snap != nil {
		st.Ready = true
		st.SnapshotID = snap.ID
		st.LoadedAt = snap.LoadedAt
		st.LatestDate = snap.LatestDate
		st.CaseRows = len(snap.Cases)
		st.VaccRows = len(snap.Vaccinations)
		st.LookupRows = len(snap.Lookup)
	}
	return st
}

// CheckReadiness returns nil once a snapshot has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.Snapshot() == nil {
		return ErrNoSnapshot
	}
	return nil
}

// Refresh reloads every feed and swaps in a new snapshot. At most one refresh
// runs at a time. Concurrent callers with the same force value share one
// result; a forced caller never joins an unforced refresh, so it always sees
// freshly fetched bodies. On failure the previous snapshot is kept.
func (p *Pipeline) Refresh(ctx context.Context, force bool) (*Snapshot, error) {
	key := "refresh"
	if force {
		key = "refresh:force"
	}
	v, err, shared := p.group.Do(key, func() (any, error) {
		p.running.Lock()
		defer p.running.Unlock()
		return p.refresh(ctx, force)
	})
	if shared {
		p.logger.Debug("joined in-flight refresh")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (p *Pipeline) refresh(ctx context.Context, force bool) (*Snapshot, error) {
	start := p.clock.Now()

	if force && p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx); err != nil {
			p.logger.Warn("source cache invalidation failed", "error", err)
		}
	}

	ds, err := p.loader.LoadAll(ctx)
	p.recordAttempt(start, err)
	if err != nil {
		p.metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	snap := buildSnapshot(ds, p.clock.Now())
	p.current.Store(snap)

	p.metrics.Refreshes.WithLabelValues("success").Inc()
	p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.SnapshotRows.WithLabelValues("cases").Set(float64(len(ds.Cases)))
	p.metrics.SnapshotRows.WithLabelValues("vaccinations").Set(float64(len(ds.Vaccinations)))
	p.metrics.SnapshotRows.WithLabelValues("lookup").Set(float64(len(ds.Lookup)))
	p.metrics.SnapshotLoadedAt.Set(float64(snap.LoadedAt.Unix()))

	p.logger.Info("snapshot refreshed",
		"snapshot_id", snap.ID,
		"case_rows", len(ds.Cases),
		"vaccination_rows", len(ds.Vaccinations),
		"lookup_rows", len(ds.Lookup),
		"latest_date", snap.LatestDate.Format(domain.DateLayout),
		"duration", p.clock.Since(start),
	)

	p.publish(ctx, snap)
	return snap, nil
}

func (p *Pipeline) recordAttempt(at time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAttempt = at
	p.lastErr = err
}

func (p *Pipeline) publish(ctx context.Context, snap *Snapshot) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, Summarize(snap)); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("publish snapshot summary failed", "error", err)
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
// Failed refreshes are retried with exponential backoff capped at the interval;
// the previous snapshot keeps serving in the meantime.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("refresh scheduler started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	backoff := initialBackoff
	for {
		if _, err := p.Refresh(ctx, true); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("refresh failed, serving previous snapshot", "error", err, "retry_in", backoff)
			if !p.sleep(ctx, backoff) {
				p.logger.Info("refresh scheduler stopping", "reason", ctx.Err())
				return nil
			}
			backoff = retry.NextBackoff(backoff, p.interval)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			p.logger.Info("refresh scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}

func buildSnapshot(ds domain.Dataset, loadedAt time.Time) *Snapshot {
	latest, _ := domain.LatestDate(ds.Cases)
	return &Snapshot{
		ID:         uuid.NewString(),
		Dataset:    ds,
		Derived:    domain.ComputeNewCases(ds.Cases),
		Regions:    domain.Regions(ds.Cases),
		LatestDate: latest,
		LoadedAt:   loadedAt,
	}
}

// Summarize builds the published summary of a snapshot: row counts, national
// totals on the latest date, and the top regions by new cases on that date.
func Summarize(snap *Snapshot) domain.SnapshotSummary {
	s := domain.SnapshotSummary{
		SnapshotID:      snap.ID,
		LoadedAt:        snap.LoadedAt,
		CaseRows:        len(snap.Cases),
		VaccinationRows: len(snap.Vaccinations),
		LookupRows:      len(snap.Lookup),
		Regions:         len(snap.Regions),
	}
	if snap.LatestDate.IsZero() {
		return s
	}
	s.LatestDate = snap.LatestDate.Format(domain.DateLayout)
	for _, d := range snap.Derived {
		if d.Date.Equal(snap.LatestDate) {
			s.TotalCases += d.Cases
			s.TotalDeaths += d.Deaths
		}
	}
	if top, err := domain.TopNByMetric(snap.Derived, snap.LatestDate, domain.MetricNewCases, domain.DefaultTopN); err == nil {
		s.TopNewCases = top
	}
	return s
}
