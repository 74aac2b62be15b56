package httpadapter

import (
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/pipeline"
)

type envelope[T any] struct {
	Data  T         `json:"data"`
	AsOf  time.Time `json:"as_of"`
	Stale bool      `json:"stale"`
	Error string    `json:"error,omitempty"`
}

func newEnvelope[S, T any](res pipeline.Result[S], data T) envelope[T] {
	return envelope[T]{Data: data, AsOf: res.AsOf, Stale: res.Stale, Error: res.Error}
}

type derivedRow struct {
	Date                string `json:"date"`
	Region              string `json:"region"`
	Cases               int64  `json:"cases"`
	Deaths              int64  `json:"deaths"`
	NewCases            int64  `json:"new_cases"`
	RollingWeekCases    *int64 `json:"rolling_week_cases"`
	RollingWeekNewCases *int64 `json:"rolling_week_new_cases"`
}

func toDerivedRow(d domain.DerivedRecord) derivedRow {
	return derivedRow{
		Date:                d.Date.Format(domain.DateLayout),
		Region:              d.Region,
		Cases:               d.Cases,
		Deaths:              d.Deaths,
		NewCases:            d.NewCases,
		RollingWeekCases:    d.RollingWeekCases,
		RollingWeekNewCases: d.RollingWeekNewCases,
	}
}

type datePoint struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

type topTable struct {
	Date string               `json:"date"`
	Rows []domain.RegionValue `json:"rows"`
}

type vaccinationRow struct {
	RegionName   string `json:"region_name"`
	Abbreviation string `json:"abbreviation"`
	Vaccinations int64  `json:"vaccinations"`
}

type snapshotStatus struct {
	Ready           bool       `json:"ready"`
	SnapshotID      string     `json:"snapshot_id,omitempty"`
	LoadedAt        *time.Time `json:"loaded_at,omitempty"`
	LatestDate      string     `json:"latest_date,omitempty"`
	CaseRows        int        `json:"case_rows"`
	VaccinationRows int        `json:"vaccination_rows"`
	LookupRows      int        `json:"lookup_rows"`
	LastAttempt     *time.Time `json:"last_attempt,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

func toStatus(st pipeline.Status) snapshotStatus {
	out := snapshotStatus{
		Ready:           st.Ready,
		SnapshotID:      st.SnapshotID,
		CaseRows:        st.CaseRows,
		VaccinationRows: st.VaccRows,
		LookupRows:      st.LookupRows,
	}
	if st.Ready {
		out.LoadedAt = &st.LoadedAt
		if !st.LatestDate.IsZero() {
			out.LatestDate = st.LatestDate.Format(domain.DateLayout)
		}
	}
	if !st.LastAttempt.IsZero() {
		out.LastAttempt = &st.LastAttempt
	}
	if st.LastError != nil {
		out.LastError = st.LastError.Error()
	}
	return out
}
