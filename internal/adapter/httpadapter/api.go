package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	defaultWindow  = domain.WindowLast30
	refreshTimeout = 60 * time.Second
)

// Views serves the dashboard tabs.
type Views interface {
	Regions() (pipeline.Result[[]string], error)
	NewCasesByRegion(region string, window domain.Window) (pipeline.Result[[]domain.DerivedRecord], error)
	Totals(metric domain.Metric) (pipeline.Result[[]domain.DatePoint], error)
	TopRegions(n int) (pipeline.Result[pipeline.TopTable], error)
	VaccinationMap() (pipeline.Result[[]domain.RegionVaccination], error)
}

// Refresher reloads the snapshot on demand and reports its state.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (*pipeline.Snapshot, error)
	Status() pipeline.Status
}

// API implements the /api routes.
type API struct {
	views     Views
	refresher Refresher
	logger    *slog.Logger
}

func NewAPI(views Views, refresher Refresher, logger *slog.Logger) *API {
	return &API{views: views, refresher: refresher, logger: logger}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/regions", a.handleRegions)
	mux.HandleFunc("GET /api/views/new-cases", a.handleNewCases)
	mux.HandleFunc("GET /api/views/totals", a.handleTotals)
	mux.HandleFunc("GET /api/views/top", a.handleTop)
	mux.HandleFunc("GET /api/views/vaccinations", a.handleVaccinations)
	mux.HandleFunc("GET /api/tabs/{view}", a.handleTab)
	mux.HandleFunc("GET /api/snapshot", a.handleSnapshot)
	mux.HandleFunc("POST /api/refresh", a.handleRefresh)
}

func (a *API) handleRegions(w http.ResponseWriter, _ *http.Request) {
	res, err := a.views.Regions()
	if err != nil {
		a.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newEnvelope(res, res.Data))
}

func (a *API) handleNewCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	region := q.Get("region")
	if region == "" {
		a.writeError(w, fmt.Errorf("%w: region is required", domain.ErrInvalidSelection))
		return
	}
	window := defaultWindow
	if raw := q.Get("window"); raw != "" {
		var err error
		if window, err = domain.ParseWindow(raw); err != nil {
			a.writeError(w, err)
			return
		}
	}

	res, err := a.views.NewCasesByRegion(region, window)
	if err != nil {
		a.writeError(w, err)
		return
	}
	rows := make([]derivedRow, len(res.Data))
	for i, d := range res.Data {
		rows[i] = toDerivedRow(d)
	}
	sharedobs.WriteJSON(w, http.StatusOK, newEnvelope(res, rows))
}

func (a *API) handleTotals(w http.ResponseWriter, r *http.Request) {
	metric := domain.MetricTotalCases
	if raw := r.URL.Query().Get("metric"); raw != "" {
		var err error
		if metric, err = domain.ParseMetric(raw); err != nil {
			a.writeError(w, err)
			return
		}
	}
	a.writeTotals(w, metric)
}

func (a *API) writeTotals(w http.ResponseWriter, metric domain.Metric) {
	res, err := a.views.Totals(metric)
	if err != nil {
		a.writeError(w, err)
		return
	}
	points := make([]datePoint, len(res.Data))
	for i, p := range res.Data {
		points[i] = datePoint{Date: p.Date.Format(domain.DateLayout), Total: p.Total}
	}
	sharedobs.WriteJSON(w, http.StatusOK, newEnvelope(res, points))
}

func (a *API) handleTop(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			a.writeError(w, fmt.Errorf("%w: n must be a non-negative integer", domain.ErrInvalidSelection))
			return
		}
		n = v
	}

	res, err := a.views.TopRegions(n)
	if err != nil {
		a.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newEnvelope(res, topTable{
		Date: res.Data.Date.Format(domain.DateLayout),
		Rows: res.Data.Rows,
	}))
}

func (a *API) handleVaccinations(w http.ResponseWriter, _ *http.Request) {
	res, err := a.views.VaccinationMap()
	if err != nil {
		a.writeError(w, err)
		return
	}
	rows := make([]vaccinationRow, len(res.Data))
	for i, v := range res.Data {
		rows[i] = vaccinationRow(v)
	}
	sharedobs.WriteJSON(w, http.StatusOK, newEnvelope(res, rows))
}

// handleTab serves one dashboard tab by name. The case tab takes the same
// region and window parameters as /api/views/new-cases.
func (a *API) handleTab(w http.ResponseWriter, r *http.Request) {
	view, err := domain.ParseView(r.PathValue("view"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	switch view {
	case domain.ViewNewCasesByRegion:
		a.handleNewCases(w, r)
	case domain.ViewVaccinationMap:
		a.handleVaccinations(w, r)
	default:
		a.writeTotals(w, view.Metric())
	}
}

func (a *API) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, toStatus(a.refresher.Status()))
}

// handleRefresh recomputes the snapshot. Cached source bodies are reused, so
// repeated clicks within the cache TTL do not hit the feeds again. The refresh
// outlives the request so a disconnecting client does not cancel it for the
// other callers sharing it.
func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), refreshTimeout)
	defer cancel()

	if _, err := a.refresher.Refresh(ctx, false); err != nil {
		a.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, toStatus(a.refresher.Status()))
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("api request failed", "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRegionNotFound), errors.Is(err, domain.ErrNoDataForDate):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoSnapshot):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
