package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	casesCSV = "date,state,fips,cases,deaths\n" +
		"2021-06-29,Ohio,39,100,5\n" +
		"2021-06-29,Texas,48,200,7\n" +
		"2021-06-30,Ohio,39,130,6\n" +
		"2021-06-30,Texas,48,210,7\n"
	vaccCSV = "date,location,total_vaccinations\n" +
		"2021-06-29,Ohio,40\n" +
		"2021-06-30,Ohio,60\n" +
		"2021-06-30,Texas,90\n"
	lookupCSV = "state,abbreviation\nOhio,OH\nTexas,TX\n"
)

func setupFeeds(t *testing.T) {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range map[string]string{
		"/cases.csv":  casesCSV,
		"/vacc.csv":   vaccCSV,
		"/lookup.csv": lookupCSV,
	} {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("CASES_URL", srv.URL+"/cases.csv")
	t.Setenv("VACCINATIONS_URL", srv.URL+"/vacc.csv")
	t.Setenv("LOOKUP_URL", srv.URL+"/lookup.csv")
	t.Setenv("SOURCE_CACHE", "none")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", "testdata-missing.env"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRegions(t *testing.T) {
	setupFeeds(t)
	out, err := run(t, "regions")
	require.NoError(t, err)
	assert.Equal(t, "Ohio\nTexas\n", out)
}

func TestCases_JSON(t *testing.T) {
	setupFeeds(t)
	out, err := run(t, "cases", "--region", "Ohio", "--window", "last_7", "--json")
	require.NoError(t, err)

	var rows []domain.DerivedRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(0), rows[0].NewCases)
	assert.Equal(t, int64(30), rows[1].NewCases)
}

func TestCases_Table(t *testing.T) {
	setupFeeds(t)
	out, err := run(t, "cases", "--region", "Texas")
	require.NoError(t, err)
	assert.Contains(t, out, "NEW_CASES")
	assert.Contains(t, out, "2021-06-30")
}

func TestCases_Errors(t *testing.T) {
	setupFeeds(t)

	_, err := run(t, "cases")
	require.Error(t, err, "region is required")

	_, err = run(t, "cases", "--region", "Ohio", "--window", "fortnight")
	require.ErrorIs(t, err, domain.ErrInvalidSelection)

	_, err = run(t, "cases", "--region", "Guam")
	require.ErrorIs(t, err, domain.ErrRegionNotFound)
}

func TestTotals(t *testing.T) {
	setupFeeds(t)
	out, err := run(t, "totals", "--metric", "total_vaccinations", "--json")
	require.NoError(t, err)

	var points []domain.DatePoint
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 2)
	assert.Equal(t, int64(40), points[0].Total)
	assert.Equal(t, int64(150), points[1].Total)
}

func TestTop(t *testing.T) {
	setupFeeds(t)
	out, err := run(t, "top", "--date", "2021-06-30", "-n", "1", "--json")
	require.NoError(t, err)

	var rows []domain.RegionValue
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []domain.RegionValue{{Region: "Ohio", Value: 30}}, rows)

	_, err = run(t, "top", "--date", "2020-01-01")
	require.ErrorIs(t, err, domain.ErrNoDataForDate)

	_, err = run(t, "top", "--date", "yesterday")
	require.ErrorIs(t, err, domain.ErrInvalidSelection)
}

func TestVaccinations(t *testing.T) {
	setupFeeds(t)

	out, err := run(t, "vaccinations")
	require.NoError(t, err)
	assert.Contains(t, out, "OH")
	assert.Contains(t, out, "100", "sum policy adds Ohio's two rows")

	out, err = run(t, "vaccinations", "--policy", "latest", "--json")
	require.NoError(t, err)
	var rows []domain.RegionVaccination
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []domain.RegionVaccination{
		{RegionName: "Ohio", Abbreviation: "OH", Vaccinations: 60},
		{RegionName: "Texas", Abbreviation: "TX", Vaccinations: 90},
	}, rows)
}

func TestSourceDown(t *testing.T) {
	setupFeeds(t)
	t.Setenv("CASES_URL", "http://127.0.0.1:1/cases.csv")

	_, err := run(t, "regions")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
